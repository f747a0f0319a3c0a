package invoicing

import (
	"time"

	"github.com/shopspring/decimal"
)

// installmentLine is one computed installment before persistence.
type installmentLine struct {
	Number  int // 1-based
	Amount  decimal.Decimal
	DueDate time.Time
}

// splitRemaining divides remaining into n parts. Every part is
// ceil(remaining/n) in minor units except the last, which gets
// remaining - base*(n-1) so the lines always sum to remaining exactly.
// Because base is the ceiling, the last line can never go negative for a
// non-negative remaining. A remaining <= 0 still yields n lines by the same
// rule; callers never pass n == 0 (the orchestrator takes the balance-invoice
// path instead).
//
// Due dates: an explicit list of length n is used positionally; otherwise
// dates are synthesized monthly starting one month from now.
func splitRemaining(remaining decimal.Decimal, n int, dueDates []time.Time, now time.Time) []installmentLine {
	cents := toMinorUnits(remaining)
	base := ceilDiv(cents, int64(n))
	lines := make([]installmentLine, n)
	for i := 0; i < n; i++ {
		amt := base
		if i == n-1 {
			amt = cents - base*int64(n-1)
		}
		due := now.AddDate(0, i+1, 0)
		if len(dueDates) == n {
			due = dueDates[i]
		}
		lines[i] = installmentLine{Number: i + 1, Amount: fromMinorUnits(amt), DueDate: due}
	}
	return lines
}
