package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InstallmentPlan is a read-only template: how many installments a balance is
// split into and, optionally, fixed due dates. An empty DueDates list means
// dates are synthesized monthly at generation time.
type InstallmentPlan struct {
	ID                   uint   `gorm:"primaryKey"`
	Name                 string `gorm:"not null"`
	NumberOfInstallments int    `gorm:"not null"`
	DueDates             datatypes.JSON  // JSON array of "2006-01-02" dates
	DepositAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ParsedDueDates decodes the DueDates column. A nil/empty column yields an
// empty slice, not an error.
func (p *InstallmentPlan) ParsedDueDates() ([]time.Time, error) {
	if len(p.DueDates) == 0 {
		return nil, nil
	}
	var raw []string
	if err := json.Unmarshal(p.DueDates, &raw); err != nil {
		return nil, fmt.Errorf("installment_plans: decode due_dates: %w", err)
	}
	dates := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("installment_plans: bad due date %q: %w", s, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

const (
	InstallmentStatusPending = "pending"
	InstallmentStatusPaid    = "paid"
	InstallmentStatusOverdue = "overdue"
)

// StudentInstallment is one scheduled installment for one student under one
// plan. The composite unique index gives the upsert-on-conflict replay its
// idempotence.
type StudentInstallment struct {
	ID                uint `gorm:"primaryKey"`
	StudentID         uint `gorm:"not null;uniqueIndex:uniq_student_plan_number"`
	InstallmentPlanID uint `gorm:"not null;uniqueIndex:uniq_student_plan_number"`
	InstallmentNumber int  `gorm:"not null;uniqueIndex:uniq_student_plan_number"` // 1-based
	DueDate           time.Time       `gorm:"not null"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status            string          `gorm:"not null;default:'pending'"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
