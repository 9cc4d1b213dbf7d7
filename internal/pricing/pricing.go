// Package pricing computes client prices and freelancer payouts from the
// service catalog. Every function here is pure: the current time is always
// an explicit parameter, never read from a clock.
package pricing

import (
	"time"

	"github.com/quillmarket/order-service/pkg/errs"
	"github.com/shopspring/decimal"
)

const urgencyWindow = 8 * time.Hour

// FreelancerDeadlineFraction of the client lead time is given to the
// freelancer; the remainder is reserved for editing and delivery.
const FreelancerDeadlineFraction = 0.75

var urgencyMultiplier = decimal.NewFromFloat(1.30)

// ComputeAmount returns the minimum legal client price for the given catalog
// entry and quantity. Orders due in under eight hours carry a 30% surcharge
// unless the entry is editing-category. The result is rounded to two decimal
// places once, at the end.
func ComputeAmount(catalogKey string, quantity int64, deadline, now time.Time) (decimal.Decimal, error) {
	entry, ok := Lookup(catalogKey)
	if !ok {
		return decimal.Decimal{}, errs.ErrUnknownService
	}

	amount := entry.Rate.Mul(decimal.NewFromInt(quantity))
	if deadline.Sub(now) < urgencyWindow && !entry.Editing {
		amount = amount.Mul(urgencyMultiplier)
	}

	return amount.Round(2), nil
}

// ValidateAmount checks a custom client-set amount against the computed
// minimum. Amounts above the minimum are allowed; below it they are rejected
// with the minimum attached for display.
func ValidateAmount(custom, minimum decimal.Decimal) error {
	if custom.LessThan(minimum) {
		return &errs.AmountBelowMinimumError{Minimum: minimum}
	}
	return nil
}

// FreelancerDeadline places the freelancer's cutoff at a fixed fraction of
// the total lead time. Never later than the client deadline.
func FreelancerDeadline(createdAt, deadline time.Time) time.Time {
	lead := deadline.Sub(createdAt)
	if lead <= 0 {
		return deadline
	}

	cutoff := createdAt.Add(time.Duration(float64(lead) * FreelancerDeadlineFraction))
	if cutoff.After(deadline) {
		return deadline
	}
	return cutoff
}
