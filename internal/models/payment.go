package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment tied to invoices
type Payment struct {
	ID              uint            `gorm:"primaryKey"`
	InvoiceID       uint            `gorm:"not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Method          string          `gorm:"not null"` // card, transfer, cash
	Status          string          `gorm:"not null"` // pending, paid, failed, refunded
	ReferenceNumber string          `gorm:"index"`
	CreatedBy       uint            `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
