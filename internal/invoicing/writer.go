package invoicing

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/housing-app/internal/models"
)

// DefaultMaxAttempts bounds how many candidate numbers the writer tries
// before giving up on one invoice.
const DefaultMaxAttempts = 15

// invoiceWriter assigns invoice numbers optimistically: insert with the next
// candidate number, and on a uniqueness conflict advance the sequence and try
// again. Correctness rests on the unique index over invoice_number, not on
// the in-process cursor. One writer is shared across all invoices of a single
// orchestration run, so numbers within a run are strictly increasing and
// never collide with each other.
type invoiceWriter struct {
	db          *gorm.DB
	year        int
	nextSeq     int
	maxAttempts int
}

func newInvoiceWriter(db *gorm.DB, year, startSeq, maxAttempts int) *invoiceWriter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if startSeq < 1 {
		startSeq = 1
	}
	return &invoiceWriter{db: db, year: year, nextSeq: startSeq, maxAttempts: maxAttempts}
}

func (w *invoiceWriter) create(ctx context.Context, inv *models.Invoice) error {
	for attempt := 0; attempt < w.maxAttempts; attempt++ {
		inv.ID = 0
		inv.InvoiceNumber = FormatInvoiceNumber(w.year, w.nextSeq)
		err := w.db.WithContext(ctx).Create(inv).Error
		if err == nil {
			w.nextSeq++
			return nil
		}
		if !isUniqueViolation(err) {
			return fmt.Errorf("invoices: create %s: %w", inv.InvoiceNumber, err)
		}
		// a concurrent booking claimed this number first
		w.nextSeq++
	}
	return fmt.Errorf("%w: gave up after %d candidates", ErrSequenceExhausted, w.maxAttempts)
}
