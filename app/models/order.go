package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order belongs to a customer by id. Items belong to the order by id.
type Order struct {
	ID          uuid.UUID       `gorm:"type:varchar(36);primaryKey"`
	CustomerID  uuid.UUID       `gorm:"type:varchar(36);not null;index"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt   time.Time       `gorm:"not null;index;autoCreateTime:false"`
	Status      OrderStatus     `gorm:"type:varchar(20);not null"`
	Items       []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderItem is one line of an order. UnitPrice is the product price at the
// moment the order was placed.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:varchar(36);primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:varchar(36);not null;index"`
	ProductID uuid.UUID       `gorm:"type:varchar(36);not null;index"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// LineTotal is UnitPrice × Quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total sums every line. The stored TotalAmount must always equal it.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}
