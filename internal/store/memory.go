package store

import (
	"context"
	"sort"

	"bankrecon/internal/models"
	"bankrecon/internal/reconerror"
)

// MemoryRepository keeps reconciliation state in process memory. It is the
// default backend when no state file is configured and the fake used by
// tests. Transactions stage changes on cloned maps and swap them in on
// commit, so a rollback never leaves partial writes behind.
type MemoryRepository struct {
	// lockCh is a one-slot semaphore serializing transaction scopes and
	// snapshot reads. A channel is used instead of a mutex so Begin can
	// honor context cancellation while waiting.
	lockCh chan struct{}

	ledger     map[string]models.LedgerRecord
	candidates map[string]models.MatchCandidate
	runs       map[string]models.ReconciliationRun
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		lockCh:     make(chan struct{}, 1),
		ledger:     map[string]models.LedgerRecord{},
		candidates: map[string]models.MatchCandidate{},
		runs:       map[string]models.ReconciliationRun{},
	}
}

func (r *MemoryRepository) acquire(ctx context.Context) error {
	select {
	case r.lockCh <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *MemoryRepository) release() {
	<-r.lockCh
}

// Begin opens a transaction scope. The scope holds the repository lock until
// Commit or Rollback, serializing writers.
func (r *MemoryRepository) Begin(ctx context.Context) (Tx, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, &reconerror.PersistenceFailure{Op: "begin", Err: err}
	}
	return &memTx{
		repo:       r,
		ledger:     cloneMap(r.ledger),
		candidates: cloneMap(r.candidates),
		runs:       cloneMap(r.runs),
	}, nil
}

// LedgerRecords returns all ledger records sorted by ID.
func (r *MemoryRepository) LedgerRecords(ctx context.Context) ([]models.LedgerRecord, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, &reconerror.PersistenceFailure{Op: "read ledger", Err: err}
	}
	defer r.release()

	records := make([]models.LedgerRecord, 0, len(r.ledger))
	for _, rec := range r.ledger {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// Candidates returns all match candidates sorted by ID.
func (r *MemoryRepository) Candidates(ctx context.Context) ([]models.MatchCandidate, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, &reconerror.PersistenceFailure{Op: "read candidates", Err: err}
	}
	defer r.release()

	candidates := make([]models.MatchCandidate, 0, len(r.candidates))
	for _, c := range r.candidates {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	return candidates, nil
}

// Runs returns all reconciliation runs sorted by start time, then ID.
func (r *MemoryRepository) Runs(ctx context.Context) ([]models.ReconciliationRun, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, &reconerror.PersistenceFailure{Op: "read runs", Err: err}
	}
	defer r.release()

	runs := make([]models.ReconciliationRun, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.Before(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

// memTx stages changes on cloned maps. Commit publishes the staged state and
// releases the repository lock; Rollback discards it.
type memTx struct {
	repo       *MemoryRepository
	ledger     map[string]models.LedgerRecord
	candidates map[string]models.MatchCandidate
	runs       map[string]models.ReconciliationRun
	done       bool

	// onCommit, when set, runs against the staged state before it is
	// published. The file-backed store uses it to persist the snapshot;
	// a failure aborts the commit and leaves the repository at its last
	// committed state.
	onCommit func() error
}

func (t *memTx) LedgerRecord(id string) (models.LedgerRecord, error) {
	rec, ok := t.ledger[id]
	if !ok {
		return models.LedgerRecord{}, &reconerror.NotFoundError{Kind: "ledger record", ID: id}
	}
	return rec, nil
}

func (t *memTx) PutLedgerRecord(rec models.LedgerRecord) error {
	t.ledger[rec.ID] = rec
	return nil
}

func (t *memTx) UpdateLedgerStatus(id string, from []models.ReconStatus, to models.ReconStatus) (bool, error) {
	rec, ok := t.ledger[id]
	if !ok {
		return false, &reconerror.NotFoundError{Kind: "ledger record", ID: id}
	}
	for _, status := range from {
		if rec.Status == status {
			rec.Status = to
			t.ledger[id] = rec
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) Candidate(id string) (models.MatchCandidate, error) {
	c, ok := t.candidates[id]
	if !ok {
		return models.MatchCandidate{}, &reconerror.NotFoundError{Kind: "candidate", ID: id}
	}
	return c, nil
}

func (t *memTx) PutCandidate(c models.MatchCandidate) error {
	t.candidates[c.ID] = c
	return nil
}

func (t *memTx) CandidatesByLedger(ledgerID string) ([]models.MatchCandidate, error) {
	return t.filterCandidates(func(c models.MatchCandidate) bool { return c.LedgerID == ledgerID }), nil
}

func (t *memTx) CandidatesByStatement(statementRef string) ([]models.MatchCandidate, error) {
	return t.filterCandidates(func(c models.MatchCandidate) bool { return c.StatementRef == statementRef }), nil
}

func (t *memTx) filterCandidates(keep func(models.MatchCandidate) bool) []models.MatchCandidate {
	var out []models.MatchCandidate
	for _, c := range t.candidates {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *memTx) PutRun(run models.ReconciliationRun) error {
	t.runs[run.ID] = run
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true

	// Persist before publish: a failed persist must not leave the staged
	// state visible in memory.
	if t.onCommit != nil {
		if err := t.onCommit(); err != nil {
			t.repo.release()
			return &reconerror.PersistenceFailure{Op: "commit", Err: err}
		}
	}

	t.repo.ledger = t.ledger
	t.repo.candidates = t.candidates
	t.repo.runs = t.runs
	t.repo.release()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.repo.release()
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
