package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings is a singleton row of dashboard-wide defaults.
type Settings struct {
	ID             uint            `gorm:"primaryKey"`
	AcademicYear   string          `gorm:"not null"` // current label, e.g. "2025/2026"
	DefaultTaxRate decimal.Decimal `gorm:"type:decimal(5,4);not null;default:0"` // 0..1
	Currency       string          `gorm:"not null;default:'GBP'"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
