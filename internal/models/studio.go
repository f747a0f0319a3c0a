package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Studio is a rentable accommodation unit.
type Studio struct {
	ID          uint   `gorm:"primaryKey"`
	Number      string `gorm:"unique;not null"`
	Floor       int
	MonthlyRate decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Status      string          `gorm:"not null;default:'available'"` // available, occupied, maintenance
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Reservation links a studio to a student or lead for a stay period.
// Invoices raised against a reservation without a student carry a nil StudentID.
type Reservation struct {
	ID        uint `gorm:"primaryKey"`
	StudioID  uint `gorm:"not null;index"`
	Studio    Studio
	StudentID *uint `gorm:"index"`
	LeadID    *uint `gorm:"index"`
	CheckIn   time.Time
	CheckOut  time.Time
	Status    string `gorm:"not null;default:'reserved'"` // reserved, active, ended, cancelled
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CleaningTask is a scheduled clean for one studio.
type CleaningTask struct {
	ID           uint `gorm:"primaryKey"`
	StudioID     uint `gorm:"not null;index"`
	Studio       Studio
	ScheduledFor time.Time `gorm:"not null;index"`
	AssignedTo   string
	Status       string `gorm:"not null;default:'scheduled'"` // scheduled, done, skipped
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
