package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/orderly/app/models"
)

type customerRepository struct {
	db *gorm.DB
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id ASC")
}

// FindByID loads the customer with its orders, their items and products.
func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var c models.Customer
	err := r.db.WithContext(ctx).
		Preload("Orders", newestFirst).
		Preload("Orders.Items").
		Preload("Orders.Items.Product").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *customerRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// FindByEmail matches the address exactly.
func (r *customerRepository) FindByEmail(ctx context.Context, email models.Email) (*models.Customer, error) {
	var c models.Customer
	err := r.db.WithContext(ctx).Where("email = ?", email.String()).First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *customerRepository) All(ctx context.Context) ([]models.Customer, error) {
	var out []models.Customer
	err := r.db.WithContext(ctx).
		Preload("Orders", newestFirst).
		Preload("Orders.Items").
		Order("name ASC").Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *customerRepository) Create(ctx context.Context, c *models.Customer) error {
	return r.db.WithContext(ctx).Omit("Orders").Create(c).Error
}

func (r *customerRepository) Update(ctx context.Context, c *models.Customer) error {
	return r.db.WithContext(ctx).Omit("Orders").Save(c).Error
}

func (r *customerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Customer{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
