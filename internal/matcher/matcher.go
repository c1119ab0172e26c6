// Package matcher generates and scores candidate pairings between statement
// transactions and ledger records. Matching runs in two passes: a strict
// exact pass (equal amount, same day) and a fuzzy pass over a widened date
// window with weighted amount/date/description scoring.
package matcher

import (
	"context"
	"runtime"
	"sort"

	"bankrecon/internal/dateutils"
	"bankrecon/internal/logging"
	"bankrecon/internal/models"
	"bankrecon/internal/reconerror"

	"github.com/shopspring/decimal"
)

// LedgerSource retrieves candidate ledger records for matching. It is
// implemented by ledger.Reader and by in-memory fakes in tests.
type LedgerSource interface {
	FetchCandidates(ctx context.Context, window dateutils.Range, amountHint *decimal.Decimal) ([]models.LedgerRecord, error)
}

// Weights are the relative contributions of the fuzzy scoring components.
// They must sum to 1.0.
type Weights struct {
	Amount      float64
	Date        float64
	Description float64
}

// Config tunes the matching passes. All thresholds are explicit so scoring
// stays reproducible; there are no hidden global tolerances.
type Config struct {
	// DateWindowDays is N in the exact-pass window [date-N, date+N].
	// The fuzzy pass widens it to 2N.
	DateWindowDays int

	// AmountTolerancePercent and AmountToleranceCents bound the fuzzy
	// amount comparison; the larger of the two applies.
	AmountTolerancePercent float64
	AmountToleranceCents   int

	// MinScore drops fuzzy candidates scoring below it.
	MinScore float64

	// Workers bounds the candidate-lookup concurrency.
	Workers int

	Weights Weights
}

// DefaultConfig returns the baseline matching configuration.
func DefaultConfig() Config {
	return Config{
		DateWindowDays:         3,
		AmountTolerancePercent: 1.0,
		AmountToleranceCents:   50,
		MinScore:               0.3,
		Workers:                runtime.NumCPU(),
		Weights:                Weights{Amount: 0.5, Date: 0.3, Description: 0.2},
	}
}

// Outcome classifies what happened to one statement transaction. Every input
// transaction maps to exactly one outcome.
type Outcome string

const (
	OutcomeExact        Outcome = "exact"
	OutcomeFuzzy        Outcome = "fuzzy"
	OutcomeAmbiguous    Outcome = "ambiguous"
	OutcomeUnmatched    Outcome = "unmatched"
	OutcomeLookupFailed Outcome = "lookup_failed"
)

// TransactionOutcome pairs a statement transaction with its matching outcome.
type TransactionOutcome struct {
	Seq          int
	StatementRef string
	Outcome      Outcome
	Err          error // set for OutcomeLookupFailed
}

// Result is the output of one matching run.
type Result struct {
	Candidates []models.MatchCandidate
	Outcomes   []TransactionOutcome
	Counts     models.RunCounts
}

// Engine runs the two matching passes.
type Engine struct {
	cfg    Config
	logger logging.Logger
}

// NewEngine creates a matching engine.
func NewEngine(cfg Config, logger logging.Logger) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Engine{cfg: cfg, logger: logger}
}

// lookup is the per-transaction state threaded through the passes.
type lookup struct {
	records []models.LedgerRecord
	err     error
}

// Match scores every statement transaction against the ledger and returns
// ranked match candidates plus a per-transaction outcome. Lookups run on a
// bounded worker pool; scoring and reservation are resolved sequentially in
// file order so output is reproducible for identical inputs. A failed lookup
// marks only that transaction; a cancelled context aborts the batch.
func (e *Engine) Match(ctx context.Context, txns []models.StatementTransaction, source LedgerSource) (*Result, error) {
	n := len(txns)
	result := &Result{
		Outcomes: make([]TransactionOutcome, n),
	}

	// Exact pass lookups, default window.
	exact := make([]lookup, n)
	forEachIndexed(ctx, e.cfg.Workers, n, func(i int) {
		txn := &txns[i]
		window := dateutils.WindowAround(txn.PostedAt, e.cfg.DateWindowDays)
		hint := txn.AbsAmount()
		exact[i].records, exact[i].err = source.FetchCandidates(ctx, window, &hint)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Exact pass resolution, sequential in file order. A reservation
	// excludes the ledger record from every later candidate pool.
	reserved := make(map[string]bool)
	needsFuzzy := make([]bool, n)
	for i := range txns {
		txn := &txns[i]
		outcome := &result.Outcomes[i]
		outcome.Seq = txn.Seq
		outcome.StatementRef = txn.Ref()

		if exact[i].err != nil {
			e.failLookup(outcome, exact[i].err)
			continue
		}

		matches := exactMatches(txn, exact[i].records, reserved)
		switch len(matches) {
		case 0:
			needsFuzzy[i] = true
		case 1:
			reserved[matches[0].ID] = true
			outcome.Outcome = OutcomeExact
			result.Candidates = append(result.Candidates, e.exactCandidate(txn, &matches[0], false))
		default:
			// Several records fit exactly: surface all of them and
			// let a human choose. None is reserved.
			outcome.Outcome = OutcomeAmbiguous
			for j := range matches {
				result.Candidates = append(result.Candidates, e.exactCandidate(txn, &matches[j], true))
			}
		}
	}

	// Fuzzy pass lookups, widened window.
	fuzzy := make([]lookup, n)
	forEachIndexed(ctx, e.cfg.Workers, n, func(i int) {
		if !needsFuzzy[i] {
			return
		}
		txn := &txns[i]
		window := dateutils.WindowAround(txn.PostedAt, e.cfg.DateWindowDays).Widen(2)
		hint := txn.AbsAmount()
		fuzzy[i].records, fuzzy[i].err = source.FetchCandidates(ctx, window, &hint)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Fuzzy pass resolution, sequential in file order.
	for i := range txns {
		if !needsFuzzy[i] {
			continue
		}
		txn := &txns[i]
		outcome := &result.Outcomes[i]

		if fuzzy[i].err != nil {
			e.failLookup(outcome, fuzzy[i].err)
			continue
		}

		scored := e.scoreFuzzy(txn, fuzzy[i].records, reserved)
		if len(scored) == 0 {
			outcome.Outcome = OutcomeUnmatched
			continue
		}

		// Top-score ties are ambiguous and never auto-selected.
		tied := 1
		for tied < len(scored) && scored[tied].Score == scored[0].Score {
			tied++
		}
		if tied > 1 {
			outcome.Outcome = OutcomeAmbiguous
			for j := 0; j < tied; j++ {
				scored[j].Ambiguous = true
			}
		} else {
			outcome.Outcome = OutcomeFuzzy
		}
		result.Candidates = append(result.Candidates, scored...)
	}

	rankPerLedger(result.Candidates)
	e.count(result)

	e.logger.Info("matching completed",
		logging.Field{Key: logging.FieldCount, Value: n},
		logging.Field{Key: "exact", Value: result.Counts.Exact},
		logging.Field{Key: "fuzzy", Value: result.Counts.Fuzzy},
		logging.Field{Key: "ambiguous", Value: result.Counts.Ambiguous},
		logging.Field{Key: "unmatched", Value: result.Counts.Unmatched})

	return result, nil
}

func (e *Engine) failLookup(outcome *TransactionOutcome, err error) {
	outcome.Outcome = OutcomeLookupFailed
	outcome.Err = &reconerror.LookupFailure{StatementRef: outcome.StatementRef, Err: err}
	e.logger.WithError(err).Warn("candidate lookup failed, transaction left unmatched",
		logging.Field{Key: logging.FieldStatement, Value: outcome.StatementRef})
}

// exactMatches returns the unreserved records equal in amount to the
// transaction's absolute amount on the same calendar day, ordered by ID.
func exactMatches(txn *models.StatementTransaction, records []models.LedgerRecord, reserved map[string]bool) []models.LedgerRecord {
	var out []models.LedgerRecord
	for _, rec := range records {
		if reserved[rec.ID] {
			continue
		}
		if !rec.Amount.Equal(txn.AbsAmount()) {
			continue
		}
		if !dateutils.SameDay(rec.Date.Time, txn.PostedAt) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (e *Engine) exactCandidate(txn *models.StatementTransaction, rec *models.LedgerRecord, ambiguous bool) models.MatchCandidate {
	return models.MatchCandidate{
		StatementRef: txn.Ref(),
		LedgerID:     rec.ID,
		Score:        1.0,
		Criteria:     []string{models.CriterionAmountExact, models.CriterionDateExact},
		Status:       models.CandidateProposed,
		Ambiguous:    ambiguous,
		Memo:         txn.Memo,
	}
}

// scoreFuzzy scores the remaining candidates for one transaction and returns
// them ordered by score descending, ledger ID ascending. Candidates below
// the score floor are dropped.
func (e *Engine) scoreFuzzy(txn *models.StatementTransaction, records []models.LedgerRecord, reserved map[string]bool) []models.MatchCandidate {
	windowEdge := 2 * e.cfg.DateWindowDays
	txAmount := txn.AbsAmount()

	var out []models.MatchCandidate
	for i := range records {
		rec := &records[i]
		if reserved[rec.ID] {
			continue
		}

		sAmount := amountScore(txAmount, rec.Amount, e.cfg.AmountTolerancePercent, e.cfg.AmountToleranceCents)
		sDate := dateScore(txn.PostedAt, rec.Date.Time, windowEdge)
		sDesc := descriptionScore(txn.Memo, rec.Description)

		score := sAmount*e.cfg.Weights.Amount + sDate*e.cfg.Weights.Date + sDesc*e.cfg.Weights.Description
		if score < e.cfg.MinScore {
			continue
		}

		var criteria []string
		switch {
		case sAmount == 1.0:
			criteria = append(criteria, models.CriterionAmountExact)
		case sAmount > 0:
			criteria = append(criteria, models.CriterionAmountClose)
		}
		switch {
		case sDate == 1.0:
			criteria = append(criteria, models.CriterionDateExact)
		case sDate > 0:
			criteria = append(criteria, models.CriterionDateNear)
		}
		if sDesc > 0 {
			criteria = append(criteria, models.CriterionDescOverlap)
		}

		out = append(out, models.MatchCandidate{
			StatementRef: txn.Ref(),
			LedgerID:     rec.ID,
			Score:        score,
			Criteria:     criteria,
			Status:       models.CandidateProposed,
			Memo:         txn.Memo,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].LedgerID < out[j].LedgerID
	})
	return out
}

// rankPerLedger assigns ranks within each ledger record: the highest-scoring
// proposal is the primary (rank 0), the rest are alternatives for manual
// override. Ties break by statement reference so ranking is deterministic.
func rankPerLedger(candidates []models.MatchCandidate) {
	byLedger := make(map[string][]int)
	for i := range candidates {
		byLedger[candidates[i].LedgerID] = append(byLedger[candidates[i].LedgerID], i)
	}
	for _, idxs := range byLedger {
		sort.Slice(idxs, func(a, b int) bool {
			ca, cb := &candidates[idxs[a]], &candidates[idxs[b]]
			if ca.Score != cb.Score {
				return ca.Score > cb.Score
			}
			return ca.StatementRef < cb.StatementRef
		})
		for rank, idx := range idxs {
			candidates[idx].Rank = rank
		}
	}
}

func (e *Engine) count(result *Result) {
	for i := range result.Outcomes {
		switch result.Outcomes[i].Outcome {
		case OutcomeExact:
			result.Counts.Exact++
		case OutcomeFuzzy:
			result.Counts.Fuzzy++
		case OutcomeAmbiguous:
			result.Counts.Ambiguous++
		case OutcomeUnmatched:
			result.Counts.Unmatched++
		case OutcomeLookupFailed:
			result.Counts.LookupFailed++
		}
	}
}
