package recon

import (
	"context"
	"errors"
	"io"
	"time"

	"bankrecon/internal/logging"
	"bankrecon/internal/matcher"
	"bankrecon/internal/models"
	"bankrecon/internal/store"

	"github.com/google/uuid"
)

// StatementParser decodes a statement export into transactions plus a report.
// Implemented by ofxparser.Parser.
type StatementParser interface {
	Parse(r io.Reader) ([]models.StatementTransaction, *models.ParseReport, error)
}

// Service orchestrates one reconciliation run: parse, match, propose,
// finalize. It owns the run lifecycle; match decisions go through Manager.
type Service struct {
	parser  StatementParser
	engine  *matcher.Engine
	source  matcher.LedgerSource
	manager *Manager
	repo    store.Repository
	logger  logging.Logger
	now     func() time.Time
}

// NewService wires the reconciliation pipeline.
func NewService(parser StatementParser, engine *matcher.Engine, source matcher.LedgerSource, manager *Manager, repo store.Repository, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Service{
		parser:  parser,
		engine:  engine,
		source:  source,
		manager: manager,
		repo:    repo,
		logger:  logger,
		now:     time.Now,
	}
}

// Run processes one uploaded statement end to end and returns the finalized
// run summary plus the proposed candidates for human review. Per-entry parse
// failures and per-transaction lookup failures are reflected in the counts,
// not raised; a persistence failure marks the run failed and is returned.
// The whole run is safe to retry since proposal is idempotent.
func (s *Service) Run(ctx context.Context, source string, r io.Reader) (*models.ReconciliationRun, []models.MatchCandidate, error) {
	run := &models.ReconciliationRun{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: s.now().UTC(),
		Status:    models.RunRunning,
	}
	if err := s.saveRun(ctx, run); err != nil {
		return nil, nil, err
	}

	log := s.logger.WithField(logging.FieldRun, run.ID)
	log.Info("reconciliation run started", logging.Field{Key: logging.FieldFile, Value: source})

	txns, report, err := s.parser.Parse(r)
	if err != nil {
		s.finalize(ctx, run, models.RunFailed, models.RunCounts{})
		return run, nil, err
	}

	result, err := s.engine.Match(ctx, txns, s.source)
	if err != nil {
		status := models.RunFailed
		if errors.Is(err, context.Canceled) {
			// Committed proposals from earlier runs stay usable;
			// nothing from this run was persisted yet.
			status = models.RunCancelled
		}
		s.finalize(ctx, run, status, countsFrom(report, nil))
		return run, nil, err
	}

	proposed, err := s.manager.ProposeMatches(ctx, run.ID, result.Candidates)
	if err != nil {
		s.finalize(ctx, run, models.RunFailed, countsFrom(report, result))
		return run, nil, err
	}

	if err := s.finalize(ctx, run, models.RunCompleted, countsFrom(report, result)); err != nil {
		return run, proposed, err
	}

	log.Info("reconciliation run completed",
		logging.Field{Key: "exact", Value: run.Counts.Exact},
		logging.Field{Key: "fuzzy", Value: run.Counts.Fuzzy},
		logging.Field{Key: "ambiguous", Value: run.Counts.Ambiguous},
		logging.Field{Key: "unmatched", Value: run.Counts.Unmatched},
		logging.Field{Key: "parse_errors", Value: run.Counts.ParseErrors})

	return run, proposed, nil
}

func countsFrom(report *models.ParseReport, result *matcher.Result) models.RunCounts {
	var counts models.RunCounts
	if result != nil {
		counts = result.Counts
	}
	if report != nil {
		counts.Entries = report.Entries
		counts.ParseErrors = report.Skipped
	}
	return counts
}

func (s *Service) finalize(ctx context.Context, run *models.ReconciliationRun, status models.RunStatus, counts models.RunCounts) error {
	run.Finalize(status, counts, s.now().UTC())
	// Finalization must go through even when the triggering context was
	// cancelled, so the run record reflects what actually happened.
	if err := s.saveRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.WithError(err).Error("failed to finalize run",
			logging.Field{Key: logging.FieldRun, Value: run.ID})
		return err
	}
	return nil
}

func (s *Service) saveRun(ctx context.Context, run *models.ReconciliationRun) error {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := tx.PutRun(*run); err != nil {
		return err
	}
	return tx.Commit()
}
