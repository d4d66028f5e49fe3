package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalogue entry with its on-hand stock.
type Product struct {
	ID            uuid.UUID       `gorm:"type:varchar(36);primaryKey"`
	Name          string          `gorm:"size:200;not null;index"`
	Price         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	StockQuantity int             `gorm:"not null;default:0"`
}

// HasStock reports whether qty units can be taken.
func (p Product) HasStock(qty int) bool {
	return qty <= p.StockQuantity
}
