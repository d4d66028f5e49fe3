package migrations

import (
	"time"

	"github.com/shashiranjanraj/orderly/pkg/migration"
	"gorm.io/gorm"
)

func init() {
	migration.Register("20250101000001_create_customers_table", &CreateCustomersTable{})
	migration.Register("20250101000002_create_products_table", &CreateProductsTable{})
	migration.Register("20250101000003_create_orders_table", &CreateOrdersTable{})
	migration.Register("20250101000004_create_order_items_table", &CreateOrderItemsTable{})
}

// The table structs below pin each table's columns as they were when the
// migration was written, so later model changes do not
// rewrite history.

type customerV1 struct {
	ID          string  `gorm:"type:varchar(36);primaryKey"`
	Name        string  `gorm:"size:200;not null"`
	Email       string  `gorm:"type:varchar(320);not null;uniqueIndex:idx_customers_email"`
	PhoneNumber *string `gorm:"size:20"`
}

func (customerV1) TableName() string { return "customers" }

type CreateCustomersTable struct{}

func (m *CreateCustomersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&customerV1{})
}

func (m *CreateCustomersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("customers")
}

type productV1 struct {
	ID            string  `gorm:"type:varchar(36);primaryKey"`
	Name          string  `gorm:"size:200;not null;index:idx_products_name"`
	Price         float64 `gorm:"type:decimal(18,2);not null"`
	StockQuantity int     `gorm:"not null;default:0"`
}

func (productV1) TableName() string { return "products" }

type CreateProductsTable struct{}

func (m *CreateProductsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&productV1{})
}

func (m *CreateProductsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("products")
}

type orderV1 struct {
	ID          string     `gorm:"type:varchar(36);primaryKey"`
	CustomerID  string     `gorm:"type:varchar(36);not null;index:idx_orders_customer_id"`
	Customer    customerV1 `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	TotalAmount float64    `gorm:"type:decimal(18,2);not null"`
	CreatedAt   time.Time  `gorm:"not null;index:idx_orders_created_at"`
	Status      string     `gorm:"type:varchar(20);not null"`
}

func (orderV1) TableName() string { return "orders" }

type CreateOrdersTable struct{}

func (m *CreateOrdersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&orderV1{})
}

func (m *CreateOrdersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("orders")
}

type orderItemV1 struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	OrderID   string    `gorm:"type:varchar(36);not null;index:idx_order_items_order_id"`
	Order     orderV1   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ProductID string    `gorm:"type:varchar(36);not null;index:idx_order_items_product_id"`
	Product   productV1 `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	Quantity  int       `gorm:"not null"`
	UnitPrice float64   `gorm:"type:decimal(18,2);not null"`
}

func (orderItemV1) TableName() string { return "order_items" }

type CreateOrderItemsTable struct{}

func (m *CreateOrderItemsTable) Up(db *gorm.DB) error {
	return db.Migrator().CreateTable(&orderItemV1{})
}

func (m *CreateOrderItemsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("order_items")
}
