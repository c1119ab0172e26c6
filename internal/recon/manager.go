// Package recon persists match decisions and enforces the reconciliation
// invariants: one active proposal per ledger record, at most one confirmed
// match per ledger record, and idempotent re-proposal. All mutations run
// inside repository transaction scopes released on every exit path.
package recon

import (
	"context"
	"fmt"

	"bankrecon/internal/logging"
	"bankrecon/internal/models"
	"bankrecon/internal/reconerror"
	"bankrecon/internal/store"

	"github.com/google/uuid"
)

var confirmable = []models.ReconStatus{models.StatusUnreconciled, models.StatusSuggested}

// Manager is the single writer of reconciliation state.
type Manager struct {
	repo   store.Repository
	logger logging.Logger
}

// NewManager creates a reconciliation state manager over the repository.
func NewManager(repo store.Repository, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Manager{repo: repo, logger: logger}
}

// ProposeMatches persists proposed candidates in a single all-or-nothing
// transaction and returns them with identifiers assigned. Re-proposing the
// same pairing is idempotent: a still-pending candidate with an unchanged
// score is left untouched, one with a different score is replaced in place.
// Primary proposals reserve their ledger record by moving it to "suggested";
// pairings whose ledger record was confirmed in the meantime are dropped.
func (m *Manager) ProposeMatches(ctx context.Context, runID string, candidates []models.MatchCandidate) ([]models.MatchCandidate, error) {
	tx, err := m.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	persisted := make([]models.MatchCandidate, 0, len(candidates))
	for i := range candidates {
		c := candidates[i]
		c.RunID = runID
		c.Status = models.CandidateProposed

		rec, err := tx.LedgerRecord(c.LedgerID)
		if err != nil {
			return nil, &reconerror.PersistenceFailure{Op: "propose", Err: err}
		}
		if rec.Status == models.StatusConfirmed {
			m.logger.Warn("dropping proposal for confirmed ledger record",
				logging.Field{Key: logging.FieldLedgerID, Value: c.LedgerID},
				logging.Field{Key: logging.FieldStatement, Value: c.StatementRef})
			continue
		}

		existing, found, err := findPending(tx, c.LedgerID, c.StatementRef)
		if err != nil {
			return nil, &reconerror.PersistenceFailure{Op: "propose", Err: err}
		}
		switch {
		case found && existing.Score == c.Score:
			// Unchanged pairing, leave it alone.
			persisted = append(persisted, existing)
			c = existing
		case found:
			c.ID = existing.ID
			fallthrough
		default:
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			if err := tx.PutCandidate(c); err != nil {
				return nil, &reconerror.PersistenceFailure{Op: "propose", Err: err}
			}
			persisted = append(persisted, c)
		}

		if c.Rank == 0 {
			if _, err := tx.UpdateLedgerStatus(c.LedgerID, []models.ReconStatus{models.StatusUnreconciled, models.StatusSuggested}, models.StatusSuggested); err != nil {
				return nil, &reconerror.PersistenceFailure{Op: "propose", Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	m.logger.Info("match proposals persisted",
		logging.Field{Key: logging.FieldRun, Value: runID},
		logging.Field{Key: logging.FieldCount, Value: len(persisted)})

	return persisted, nil
}

// Confirm atomically confirms a candidate: the ledger record moves to
// "confirmed" under a compare-and-swap status check, and every other pending
// candidate referencing the same ledger record or the same statement
// transaction is rejected. Fails with AlreadyReconciledError when the ledger
// record is no longer confirmable, leaving state unchanged.
func (m *Manager) Confirm(ctx context.Context, candidateID string) (models.LedgerRecord, error) {
	tx, err := m.repo.Begin(ctx)
	if err != nil {
		return models.LedgerRecord{}, err
	}
	defer tx.Rollback()

	c, err := tx.Candidate(candidateID)
	if err != nil {
		return models.LedgerRecord{}, err
	}
	if !c.Pending() {
		rec, recErr := tx.LedgerRecord(c.LedgerID)
		if recErr != nil {
			return models.LedgerRecord{}, recErr
		}
		return models.LedgerRecord{}, &reconerror.AlreadyReconciledError{LedgerID: c.LedgerID, Status: string(rec.Status)}
	}

	// The affected-row check is what makes concurrent confirmations safe:
	// only one scope can move the record out of a confirmable status.
	ok, err := tx.UpdateLedgerStatus(c.LedgerID, confirmable, models.StatusConfirmed)
	if err != nil {
		return models.LedgerRecord{}, &reconerror.PersistenceFailure{Op: "confirm", Err: err}
	}
	if !ok {
		rec, recErr := tx.LedgerRecord(c.LedgerID)
		if recErr != nil {
			return models.LedgerRecord{}, recErr
		}
		return models.LedgerRecord{}, &reconerror.AlreadyReconciledError{LedgerID: c.LedgerID, Status: string(rec.Status)}
	}

	c.Status = models.CandidateConfirmed
	if err := tx.PutCandidate(c); err != nil {
		return models.LedgerRecord{}, &reconerror.PersistenceFailure{Op: "confirm", Err: err}
	}

	if err := m.rejectSiblings(tx, c); err != nil {
		return models.LedgerRecord{}, err
	}

	rec, err := tx.LedgerRecord(c.LedgerID)
	if err != nil {
		return models.LedgerRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.LedgerRecord{}, err
	}

	m.logger.Info("candidate confirmed",
		logging.Field{Key: logging.FieldCandidate, Value: candidateID},
		logging.Field{Key: logging.FieldLedgerID, Value: c.LedgerID})

	return rec, nil
}

// Reject marks a candidate rejected and returns its ledger record to
// "unreconciled" when no other pending candidate references it. Rejecting an
// already-rejected candidate is a no-op; rejecting a confirmed one is an
// error.
func (m *Manager) Reject(ctx context.Context, candidateID string) error {
	tx, err := m.repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c, err := tx.Candidate(candidateID)
	if err != nil {
		return err
	}
	switch c.Status {
	case models.CandidateRejected:
		return tx.Commit()
	case models.CandidateConfirmed:
		return fmt.Errorf("candidate %s is already confirmed", candidateID)
	}

	c.Status = models.CandidateRejected
	if err := tx.PutCandidate(c); err != nil {
		return &reconerror.PersistenceFailure{Op: "reject", Err: err}
	}

	if err := m.releaseIfUnreferenced(tx, c.LedgerID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	m.logger.Info("candidate rejected",
		logging.Field{Key: logging.FieldCandidate, Value: candidateID},
		logging.Field{Key: logging.FieldLedgerID, Value: c.LedgerID})

	return nil
}

// rejectSiblings rejects every other pending candidate that references the
// confirmed candidate's ledger record or statement transaction, releasing
// any ledger records those siblings had reserved.
func (m *Manager) rejectSiblings(tx store.Tx, confirmed models.MatchCandidate) error {
	ledgerSiblings, err := tx.CandidatesByLedger(confirmed.LedgerID)
	if err != nil {
		return &reconerror.PersistenceFailure{Op: "confirm", Err: err}
	}
	statementSiblings, err := tx.CandidatesByStatement(confirmed.StatementRef)
	if err != nil {
		return &reconerror.PersistenceFailure{Op: "confirm", Err: err}
	}

	released := map[string]struct{}{}
	for _, sib := range append(ledgerSiblings, statementSiblings...) {
		if sib.ID == confirmed.ID || !sib.Pending() {
			continue
		}
		sib.Status = models.CandidateRejected
		if err := tx.PutCandidate(sib); err != nil {
			return &reconerror.PersistenceFailure{Op: "confirm", Err: err}
		}
		if sib.LedgerID != confirmed.LedgerID {
			released[sib.LedgerID] = struct{}{}
		}
	}

	for ledgerID := range released {
		if err := m.releaseIfUnreferenced(tx, ledgerID); err != nil {
			return err
		}
	}
	return nil
}

// releaseIfUnreferenced returns a suggested ledger record to "unreconciled"
// when no pending candidate references it anymore.
func (m *Manager) releaseIfUnreferenced(tx store.Tx, ledgerID string) error {
	siblings, err := tx.CandidatesByLedger(ledgerID)
	if err != nil {
		return &reconerror.PersistenceFailure{Op: "release", Err: err}
	}
	for _, sib := range siblings {
		if sib.Pending() {
			return nil
		}
	}
	if _, err := tx.UpdateLedgerStatus(ledgerID, []models.ReconStatus{models.StatusSuggested}, models.StatusUnreconciled); err != nil {
		return &reconerror.PersistenceFailure{Op: "release", Err: err}
	}
	return nil
}

// findPending locates a still-pending candidate for the same pairing.
func findPending(tx store.Tx, ledgerID, statementRef string) (models.MatchCandidate, bool, error) {
	siblings, err := tx.CandidatesByLedger(ledgerID)
	if err != nil {
		return models.MatchCandidate{}, false, err
	}
	for _, sib := range siblings {
		if sib.Pending() && sib.StatementRef == statementRef {
			return sib, true, nil
		}
	}
	return models.MatchCandidate{}, false, nil
}
