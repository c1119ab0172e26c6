// Package ledger provides read access to the internal ledger for matching
// purposes, plus CSV import and export of ledger records. The reader is the
// sole ledger access path used by the matching engine and never mutates
// state.
package ledger

import (
	"context"

	"bankrecon/internal/dateutils"
	"bankrecon/internal/logging"
	"bankrecon/internal/models"
	"bankrecon/internal/store"

	"github.com/shopspring/decimal"
)

// Options tunes candidate retrieval.
type Options struct {
	// AmountSlackPercent and AmountSlackCents bound the amount prefilter
	// applied when an amount hint is given. The larger of the two wins,
	// mirroring the matching tolerance. Zero values disable the prefilter.
	AmountSlackPercent float64
	AmountSlackCents   int
}

// Reader retrieves unreconciled ledger records inside a date window.
type Reader struct {
	repo   store.Repository
	opts   Options
	logger logging.Logger
}

// NewReader creates a ledger reader over the given repository.
func NewReader(repo store.Repository, opts Options, logger logging.Logger) *Reader {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Reader{repo: repo, opts: opts, logger: logger}
}

// FetchCandidates returns the matchable ledger records whose date falls
// inside the window, sorted by ID. Confirmed records are excluded; suggested
// ones remain visible so a retried run re-proposes the same pairing and the
// proposal layer dedupes it. When an amount hint is given, records far
// outside the amount tolerance are prefiltered.
func (r *Reader) FetchCandidates(ctx context.Context, window dateutils.Range, amountHint *decimal.Decimal) ([]models.LedgerRecord, error) {
	records, err := r.repo.LedgerRecords(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.LedgerRecord
	for _, rec := range records {
		if !rec.Matchable() {
			continue
		}
		if !window.Contains(rec.Date.Time) {
			continue
		}
		if amountHint != nil && !r.withinSlack(rec.Amount, amountHint.Abs()) {
			continue
		}
		out = append(out, rec)
	}

	r.logger.Debug("candidates fetched",
		logging.Field{Key: logging.FieldWindowDays, Value: window.Days()},
		logging.Field{Key: logging.FieldCount, Value: len(out)})

	return out, nil
}

// withinSlack checks |amount - hint| against the configured slack, which is
// the larger of the percentage and fixed-cents bounds.
func (r *Reader) withinSlack(amount, hint decimal.Decimal) bool {
	if r.opts.AmountSlackPercent <= 0 && r.opts.AmountSlackCents <= 0 {
		return true
	}
	slack := hint.Mul(decimal.NewFromFloat(r.opts.AmountSlackPercent / 100))
	fixed := decimal.New(int64(r.opts.AmountSlackCents), -2)
	if fixed.GreaterThan(slack) {
		slack = fixed
	}
	return amount.Sub(hint).Abs().LessThanOrEqual(slack)
}
