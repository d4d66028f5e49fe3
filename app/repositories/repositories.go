// Package repositories persists the domain models with gorm. Every method
// takes a context and runs on whichever *gorm.DB the Store was built from,
// so the same code serves plain reads and transactional writes.
package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/orderly/app/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("repositories: not found")
	// ErrStaleStatus is returned by UpdateStatus when the order no longer
	// holds the expected status.
	ErrStaleStatus = errors.New("repositories: order status changed concurrently")
	// ErrInsufficientStock is returned by DecrementStock when the row holds
	// fewer units than requested at the moment of the update.
	ErrInsufficientStock = errors.New("repositories: insufficient stock")
)

type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	FindByEmail(ctx context.Context, email models.Email) (*models.Customer, error)
	All(ctx context.Context) ([]models.Customer, error)
	Create(ctx context.Context, c *models.Customer) error
	Update(ctx context.Context, c *models.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// All returns products ordered by name.
	All(ctx context.Context) ([]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DecrementStock atomically removes qty units, failing with
	// ErrInsufficientStock instead of going negative.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
}

type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// ForCustomer returns the customer's orders, newest first.
	ForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error)
	All(ctx context.Context) ([]models.Order, error)
	Create(ctx context.Context, o *models.Order) error
	// UpdateStatus moves the order from -> to, writing only the status
	// column. It fails with ErrStaleStatus if the stored status is not from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Store groups the repositories that share one connection or transaction.
type Store struct {
	db        *gorm.DB
	Customers CustomerRepository
	Products  ProductRepository
	Orders    OrderRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		Customers: &customerRepository{db: db},
		Products:  &productRepository{db: db},
		Orders:    &orderRepository{db: db},
	}
}

// Transaction runs fn against a Store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB { return s.db }

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
