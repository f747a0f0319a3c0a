package invoicing

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrInvalidInput covers bad amounts and unresolvable references; nothing
	// has been written when it is returned.
	ErrInvalidInput = errors.New("invalid_input")
	// ErrStudentNotFound: the booking references an unknown student.
	ErrStudentNotFound = errors.New("student_not_found")
	// ErrPlanNotFound: the booking references an unknown installment plan.
	ErrPlanNotFound = errors.New("installment_plan_not_found")
	// ErrNoActor: no user row exists to own created_by.
	ErrNoActor = errors.New("no_acting_user_available")
	// ErrSequenceExhausted: the writer ran out of candidate invoice numbers.
	// Retryable by an operator once the sequence hot spot clears.
	ErrSequenceExhausted = errors.New("invoice_sequence_exhausted")
	// ErrAlreadyInvoiced: the idempotency key was already used; the booking
	// has been invoiced (or an attempt is in flight) and must not be redone.
	ErrAlreadyInvoiced = errors.New("booking_already_invoiced")
)

// isUniqueViolation reports whether err is a uniqueness-constraint conflict.
// Only these are transient for the writer; everything else aborts. Covers the
// GORM translated error plus the raw Postgres and sqlite messages.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
