package matcher

import (
	"time"

	"bankrecon/internal/dateutils"
	"bankrecon/internal/textutils"

	"github.com/shopspring/decimal"
)

// The scoring functions are pure and configuration-driven: the same inputs
// and tolerances always produce the same score, which keeps matching output
// reproducible and unit-testable without I/O.

// amountTolerance returns the absolute tolerance for a given amount: the
// larger of the percentage bound and the fixed-cents bound.
func amountTolerance(amount decimal.Decimal, percent float64, cents int) decimal.Decimal {
	relative := amount.Mul(decimal.NewFromFloat(percent / 100))
	fixed := decimal.New(int64(cents), -2)
	if fixed.GreaterThan(relative) {
		return fixed
	}
	return relative
}

// amountScore is 1.0 on exact equality and decays linearly to 0 at the
// tolerance edge.
func amountScore(txAmount, recAmount decimal.Decimal, percent float64, cents int) float64 {
	if txAmount.Equal(recAmount) {
		return 1.0
	}
	tolerance := amountTolerance(txAmount, percent, cents)
	if !tolerance.IsPositive() {
		return 0
	}
	diff := txAmount.Sub(recAmount).Abs()
	if diff.GreaterThanOrEqual(tolerance) {
		return 0
	}
	ratio, _ := diff.Div(tolerance).Float64()
	return 1.0 - ratio
}

// dateScore is 1.0 on the same calendar day and decays linearly to 0 at the
// window edge.
func dateScore(a, b time.Time, windowDays int) float64 {
	days := dateutils.DaysBetween(a, b)
	if days == 0 {
		return 1.0
	}
	if windowDays <= 0 || days >= windowDays {
		return 0
	}
	return 1.0 - float64(days)/float64(windowDays)
}

// descriptionScore is the token-overlap ratio between the normalized memo and
// ledger description.
func descriptionScore(memo, description string) float64 {
	return textutils.TokenOverlap(memo, description)
}
