package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Invoice statuses. Transitions past pending/completed belong to the payment
// processing path, not to invoice generation.
const (
	InvoiceStatusPending       = "pending"
	InvoiceStatusCompleted     = "completed"
	InvoiceStatusPaymentFailed = "payment_failed"
	InvoiceStatusRefunded      = "refunded"
)

// Invoice is a single financial document. InvoiceNumber is globally unique
// (format INV-{year}-{seq:04d}); the unique index is what the invoicing
// writer's retry loop relies on under concurrent bookings.
type Invoice struct {
	ID            uint   `gorm:"primaryKey"`
	InvoiceNumber string `gorm:"uniqueIndex;not null"`
	StudentID     *uint  `gorm:"index"`
	ReservationID *uint  `gorm:"index"`
	// TotalAmount == Amount + TaxAmount, always.
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DueDate     time.Time       `gorm:"not null"`
	Status      string          `gorm:"not null;default:'pending'"`
	AcademicYear string         `gorm:"index"` // label, e.g. "2025/2026"
	// ExternalReference holds a payment-processor transaction id when the
	// invoice was settled outside the dashboard (public intake flow).
	ExternalReference string
	CreatedBy         uint `gorm:"not null"` // FK users.id, never null
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// InvoiceRun records one invoicing attempt for a booking, keyed by the
// caller-supplied idempotency key. Creating the row before any invoice write
// is what makes a replayed booking fail fast instead of duplicating invoices.
const (
	InvoiceRunStarted   = "started"
	InvoiceRunCompleted = "completed"
	InvoiceRunFailed    = "failed"
)

type InvoiceRun struct {
	ID        uint           `gorm:"primaryKey"`
	Key       string         `gorm:"uniqueIndex;not null"`
	Status    string         `gorm:"not null;default:'started'"`
	Bundle    datatypes.JSON // ids of created invoices/installments/payment
	CreatedAt time.Time
	UpdatedAt time.Time
}
