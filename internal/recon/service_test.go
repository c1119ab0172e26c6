package recon

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankrecon/internal/ledger"
	"bankrecon/internal/logging"
	"bankrecon/internal/matcher"
	"bankrecon/internal/models"
	"bankrecon/internal/reconerror"
	"bankrecon/internal/store"
)

// fakeParser returns canned transactions regardless of input.
type fakeParser struct {
	txns   []models.StatementTransaction
	report *models.ParseReport
	err    error
}

func (f *fakeParser) Parse(io.Reader) ([]models.StatementTransaction, *models.ParseReport, error) {
	return f.txns, f.report, f.err
}

func newTestService(t *testing.T, parser StatementParser, records ...models.LedgerRecord) (*Service, *store.MemoryRepository) {
	t.Helper()
	repo := store.NewMemoryRepository()
	tx, err := repo.Begin(context.Background())
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, tx.PutLedgerRecord(rec))
	}
	require.NoError(t, tx.Commit())

	log := &logging.MockLogger{}
	cfg := matcher.DefaultConfig()
	cfg.Workers = 2
	engine := matcher.NewEngine(cfg, log)
	reader := ledger.NewReader(repo, ledger.Options{}, log)
	manager := NewManager(repo, log)
	return NewService(parser, engine, reader, manager, repo, log), repo
}

func TestServiceRunCompletes(t *testing.T) {
	records := []models.LedgerRecord{{
		ID:          "V-1001",
		Date:        models.NewDate(2025, time.March, 10),
		Amount:      decimal.NewFromFloat(150.75),
		Kind:        models.KindOutflow,
		Description: "Pagamento fornecedor XYZ",
		Status:      models.StatusUnreconciled,
	}}
	parser := &fakeParser{
		txns: []models.StatementTransaction{{
			Seq:      0,
			FitID:    "FIT-1",
			PostedAt: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			Amount:   decimal.NewFromFloat(-150.75),
			Memo:     "PAGAMENTO FORNECEDOR XYZ",
		}},
		report: &models.ParseReport{Dialect: "sgml", Entries: 1, Parsed: 1},
	}
	service, repo := newTestService(t, parser, records...)
	ctx := context.Background()

	run, proposed, err := service.Run(ctx, "extrato.ofx", strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, models.RunCompleted, run.Status)
	assert.Equal(t, "extrato.ofx", run.Source)
	assert.Equal(t, 1, run.Counts.Entries)
	assert.Equal(t, 1, run.Counts.Exact)
	assert.False(t, run.FinalizedAt.IsZero())

	require.Len(t, proposed, 1)
	assert.Equal(t, run.ID, proposed[0].RunID)
	assert.Equal(t, "V-1001", proposed[0].LedgerID)
	assert.Equal(t, 1.0, proposed[0].Score)

	// The run record and the proposal are persisted.
	runs, err := repo.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunCompleted, runs[0].Status)

	candidates, err := repo.Candidates(ctx)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)

	// The ledger record is reserved for review.
	ledgerRecords, err := repo.LedgerRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuggested, ledgerRecords[0].Status)
}

func TestServiceRunIsRetrySafe(t *testing.T) {
	records := []models.LedgerRecord{{
		ID:          "V-1001",
		Date:        models.NewDate(2025, time.March, 10),
		Amount:      decimal.NewFromFloat(150.75),
		Kind:        models.KindOutflow,
		Description: "Pagamento fornecedor XYZ",
		Status:      models.StatusUnreconciled,
	}}
	parser := &fakeParser{
		txns: []models.StatementTransaction{{
			Seq:      0,
			FitID:    "FIT-1",
			PostedAt: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			Amount:   decimal.NewFromFloat(-150.75),
			Memo:     "PAGAMENTO FORNECEDOR XYZ",
		}},
		report: &models.ParseReport{Entries: 1, Parsed: 1},
	}
	service, repo := newTestService(t, parser, records...)
	ctx := context.Background()

	_, firstProposed, err := service.Run(ctx, "extrato.ofx", strings.NewReader(""))
	require.NoError(t, err)
	require.Len(t, firstProposed, 1)

	// Re-running the same statement proposes nothing new.
	_, secondProposed, err := service.Run(ctx, "extrato.ofx", strings.NewReader(""))
	require.NoError(t, err)
	require.Len(t, secondProposed, 1)
	assert.Equal(t, firstProposed[0].ID, secondProposed[0].ID)

	candidates, err := repo.Candidates(ctx)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)

	runs, err := repo.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestServiceRunParseFailure(t *testing.T) {
	parser := &fakeParser{err: &reconerror.MalformedStatementError{Reason: "no markup found"}}
	service, repo := newTestService(t, parser)
	ctx := context.Background()

	run, proposed, err := service.Run(ctx, "broken.ofx", strings.NewReader(""))
	require.Error(t, err)

	var malformed *reconerror.MalformedStatementError
	assert.ErrorAs(t, err, &malformed)
	assert.Empty(t, proposed)
	assert.Equal(t, models.RunFailed, run.Status)

	// The failed run is still recorded.
	runs, repoErr := repo.Runs(ctx)
	require.NoError(t, repoErr)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunFailed, runs[0].Status)
}

func TestServiceRunCancelledContext(t *testing.T) {
	parser := &fakeParser{
		txns: []models.StatementTransaction{{
			Seq:      0,
			FitID:    "FIT-1",
			PostedAt: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			Amount:   decimal.NewFromFloat(-10.00),
			Memo:     "TARIFA",
		}},
		report: &models.ParseReport{Entries: 1, Parsed: 1},
	}
	service, repo := newTestService(t, parser)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, _, err := service.Run(ctx, "extrato.ofx", strings.NewReader(""))
	require.Error(t, err)

	// Begin for the initial run record fails on the cancelled context before
	// matching even starts; either way nothing is left half-done.
	if run != nil {
		runs, repoErr := repo.Runs(context.Background())
		require.NoError(t, repoErr)
		for _, r := range runs {
			assert.True(t, r.Finalized())
		}
	}
}
