package models

import "github.com/google/uuid"

// Column limits shared by customers and products.
const (
	MaxNameLength  = 200
	MaxPhoneLength = 20
)

// Customer places orders. Orders are loaded explicitly; they are not part of
// the persisted row.
type Customer struct {
	ID          uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	Name        string    `gorm:"size:200;not null"`
	Email       Email     `gorm:"type:varchar(320);not null;uniqueIndex"`
	PhoneNumber *string   `gorm:"size:20"`
	Orders      []Order   `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
}
