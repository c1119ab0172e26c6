package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankrecon/internal/models"
	"bankrecon/internal/reconerror"
)

func newLedgerRecord(id string, amount float64, status models.ReconStatus) models.LedgerRecord {
	return models.LedgerRecord{
		ID:          id,
		Date:        models.NewDate(2025, time.March, 10),
		Amount:      decimal.NewFromFloat(amount),
		Kind:        models.KindOutflow,
		Description: "record " + id,
		Status:      status,
	}
}

func seedLedger(t *testing.T, repo Repository, records ...models.LedgerRecord) {
	t.Helper()
	tx, err := repo.Begin(context.Background())
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, tx.PutLedgerRecord(rec))
	}
	require.NoError(t, tx.Commit())
}

func TestMemoryCommitPublishesState(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	seedLedger(t, repo,
		newLedgerRecord("L-2", 20, models.StatusUnreconciled),
		newLedgerRecord("L-1", 10, models.StatusUnreconciled))

	records, err := repo.LedgerRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "L-1", records[0].ID)
	assert.Equal(t, "L-2", records[1].ID)
}

func TestMemoryRollbackDiscardsChanges(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.PutLedgerRecord(newLedgerRecord("L-1", 10, models.StatusUnreconciled)))
	require.NoError(t, tx.Rollback())

	records, err := repo.LedgerRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoryRollbackAfterCommitIsNoOp(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.PutLedgerRecord(newLedgerRecord("L-1", 10, models.StatusUnreconciled)))
	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Rollback())

	records, err := repo.LedgerRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMemoryTransactionsSerialize(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)

	// A second Begin must block until the first scope ends.
	blocked, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = repo.Begin(blocked)
	require.Error(t, err)

	var persistence *reconerror.PersistenceFailure
	require.ErrorAs(t, err, &persistence)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tx.Rollback())
	tx2, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback())
}

func TestUpdateLedgerStatusCAS(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	seedLedger(t, repo, newLedgerRecord("L-1", 10, models.StatusUnreconciled))

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	ok, err := tx.UpdateLedgerStatus("L-1", []models.ReconStatus{models.StatusUnreconciled}, models.StatusSuggested)
	require.NoError(t, err)
	assert.True(t, ok)

	// Same precondition again: the record already moved on.
	ok, err = tx.UpdateLedgerStatus("L-1", []models.ReconStatus{models.StatusUnreconciled}, models.StatusSuggested)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = tx.UpdateLedgerStatus("L-1", []models.ReconStatus{models.StatusUnreconciled, models.StatusSuggested}, models.StatusConfirmed)
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err := tx.LedgerRecord("L-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, rec.Status)

	_, err = tx.UpdateLedgerStatus("missing", []models.ReconStatus{models.StatusUnreconciled}, models.StatusSuggested)
	var notFound *reconerror.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCandidateLookups(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.PutCandidate(models.MatchCandidate{ID: "c-2", StatementRef: "s-1", LedgerID: "L-1"}))
	require.NoError(t, tx.PutCandidate(models.MatchCandidate{ID: "c-1", StatementRef: "s-1", LedgerID: "L-2"}))
	require.NoError(t, tx.PutCandidate(models.MatchCandidate{ID: "c-3", StatementRef: "s-2", LedgerID: "L-1"}))
	require.NoError(t, tx.Commit())

	tx, err = repo.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	byStatement, err := tx.CandidatesByStatement("s-1")
	require.NoError(t, err)
	require.Len(t, byStatement, 2)
	assert.Equal(t, "c-1", byStatement[0].ID)
	assert.Equal(t, "c-2", byStatement[1].ID)

	byLedger, err := tx.CandidatesByLedger("L-1")
	require.NoError(t, err)
	require.Len(t, byLedger, 2)
	assert.Equal(t, "c-2", byLedger[0].ID)
	assert.Equal(t, "c-3", byLedger[1].ID)

	_, err = tx.Candidate("nope")
	var notFound *reconerror.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRunsSortedByStartTime(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	early := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	late := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.PutRun(models.ReconciliationRun{ID: "r-b", StartedAt: late, Status: models.RunCompleted}))
	require.NoError(t, tx.PutRun(models.ReconciliationRun{ID: "r-a", StartedAt: early, Status: models.RunCompleted}))
	require.NoError(t, tx.Commit())

	runs, err := repo.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r-a", runs[0].ID)
	assert.Equal(t, "r-b", runs[1].ID)
}
