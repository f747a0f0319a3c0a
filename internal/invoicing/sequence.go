package invoicing

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/diewo77/housing-app/internal/models"
)

var invoiceNumberRe = regexp.MustCompile(`^INV-(\d{4})-(\d+)$`)

// FormatInvoiceNumber renders the canonical number, e.g. INV-2026-0042.
// The sequence is zero-padded to four digits but keeps growing past 9999.
func FormatInvoiceNumber(year, seq int) string {
	return fmt.Sprintf("INV-%d-%04d", year, seq)
}

// nextSequenceBase derives the current year and a starting sequence from the
// most recently created invoice of that year. This is only a hint: two
// concurrent bookings can read the same base, and the writer's retry loop on
// the unique index is what actually guarantees uniqueness. Any read or parse
// problem falls back to sequence 1; format drift must never block a booking.
func (s *Service) nextSequenceBase(ctx context.Context) (year, startSeq int) {
	year = s.now().Year()
	var last models.Invoice
	err := s.db.WithContext(ctx).
		Where("invoice_number LIKE ?", fmt.Sprintf("INV-%d-%%", year)).
		Order("created_at DESC, id DESC").
		First(&last).Error
	if err != nil {
		return year, 1
	}
	m := invoiceNumberRe.FindStringSubmatch(last.InvoiceNumber)
	if m == nil {
		return year, 1
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil || seq < 1 {
		return year, 1
	}
	return year, seq + 1
}
