package seeders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/orderly/app/models"
	"github.com/shashiranjanraj/orderly/pkg/logger"
)

// Menu is the starter catalogue.
var Menu = []struct {
	Name  string
	Price string
	Stock int
}{
	{"Margherita Pizza", "12.99", 50},
	{"Pepperoni Pizza", "14.99", 45},
	{"Caesar Salad", "8.99", 30},
	{"Grilled Chicken", "16.99", 25},
	{"Pasta Carbonara", "13.99", 40},
	{"Tiramisu", "6.99", 20},
	{"Coca Cola", "2.99", 100},
	{"Orange Juice", "3.49", 60},
}

// SeedProducts fills an empty products table with Menu. A table that already
// has rows is left alone.
func SeedProducts(ctx context.Context, tx *gorm.DB) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Debug("seeders: products already present", "count", count)
		return nil
	}

	products := make([]models.Product, len(Menu))
	for i, m := range Menu {
		products[i] = models.Product{
			ID:            uuid.New(),
			Name:          m.Name,
			Price:         decimal.RequireFromString(m.Price),
			StockQuantity: m.Stock,
		}
	}

	if err := tx.WithContext(ctx).Create(&products).Error; err != nil {
		return err
	}
	logger.Info("seeders: products seeded", "count", len(products))
	return nil
}
