// Package store provides the persistence seam for reconciliation state: a
// transactional Repository interface plus an in-memory implementation and a
// file-backed one (ledger CSV, YAML state). The reconciliation manager only
// talks to these interfaces, so a relational backend can be substituted
// without touching the matching or confirmation logic.
package store

import (
	"context"

	"bankrecon/internal/models"
)

// Repository exposes reconciliation state. Reads outside a transaction see
// the last committed state; all mutations go through a Tx.
type Repository interface {
	// Begin opens a transaction scope. Scopes are serialized: a second
	// Begin blocks until the first commits or rolls back, which is what
	// makes concurrent confirmations race-safe.
	Begin(ctx context.Context) (Tx, error)

	// LedgerRecords returns all ledger records sorted by ID.
	LedgerRecords(ctx context.Context) ([]models.LedgerRecord, error)

	// Candidates returns all match candidates sorted by ID.
	Candidates(ctx context.Context) ([]models.MatchCandidate, error)

	// Runs returns all reconciliation runs sorted by start time.
	Runs(ctx context.Context) ([]models.ReconciliationRun, error)
}

// Tx is a single all-or-nothing transaction scope. Every exit path must call
// Commit or Rollback; Rollback after Commit is a no-op, so "defer Rollback"
// is the expected usage.
type Tx interface {
	// LedgerRecord fetches one record by ID.
	LedgerRecord(id string) (models.LedgerRecord, error)

	// PutLedgerRecord inserts or replaces a ledger record.
	PutLedgerRecord(rec models.LedgerRecord) error

	// UpdateLedgerStatus is the compare-and-swap primitive guarding
	// reservation exclusivity: the status moves to `to` only if the
	// current status is one of `from`. The boolean mirrors an
	// affected-row-count check.
	UpdateLedgerStatus(id string, from []models.ReconStatus, to models.ReconStatus) (bool, error)

	// Candidate fetches one match candidate by ID.
	Candidate(id string) (models.MatchCandidate, error)

	// PutCandidate inserts or replaces a match candidate.
	PutCandidate(c models.MatchCandidate) error

	// CandidatesByLedger returns candidates referencing a ledger record,
	// sorted by ID.
	CandidatesByLedger(ledgerID string) ([]models.MatchCandidate, error)

	// CandidatesByStatement returns candidates referencing a statement
	// transaction, sorted by ID.
	CandidatesByStatement(statementRef string) ([]models.MatchCandidate, error)

	// PutRun inserts or replaces a reconciliation run.
	PutRun(run models.ReconciliationRun) error

	Commit() error
	Rollback() error
}
