package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Freelancer payout rates. Keyed by a normalized substring match on the work
// type name: legacy upstream data carries free-form names like "AI Removal "
// or "plagiarism fix", so the loose matching survives here at the boundary
// and nowhere else.
var (
	payoutPageRateDefault    = decimal.NewFromInt(150)
	payoutPageRateAIRemoval  = decimal.NewFromInt(60)
	payoutPageRatePlagiarism = decimal.NewFromInt(50)
	payoutSlideRate          = decimal.NewFromInt(50)

	// No payout ever drops below this, even for zero-quantity or malformed
	// input; downstream display paths rely on the function being total.
	payoutFloor = decimal.NewFromInt(100)
)

// ComputePayout returns the freelancer's earnings for an order. Total
// function: any input yields at least the floor and never an error.
func ComputePayout(workType string, pages, slides int64) decimal.Decimal {
	normalized := strings.ToLower(strings.TrimSpace(workType))

	pageRate := payoutPageRateDefault
	switch {
	case strings.Contains(normalized, "ai removal"), strings.Contains(normalized, "ai content"):
		pageRate = payoutPageRateAIRemoval
	case strings.Contains(normalized, "plagiarism"):
		pageRate = payoutPageRatePlagiarism
	}

	if pages < 0 {
		pages = 0
	}
	if slides < 0 {
		slides = 0
	}

	payout := pageRate.Mul(decimal.NewFromInt(pages)).
		Add(payoutSlideRate.Mul(decimal.NewFromInt(slides)))

	if payout.LessThan(payoutFloor) {
		return payoutFloor
	}

	return payout.Round(2)
}
