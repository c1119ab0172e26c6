package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"bankrecon/internal/logging"
	"bankrecon/internal/models"
	"bankrecon/internal/reconerror"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// stateDocument is the YAML layout of the reconciliation state file.
type stateDocument struct {
	Candidates []models.MatchCandidate    `yaml:"candidates"`
	Runs       []models.ReconciliationRun `yaml:"runs"`
}

// FileRepository persists the in-memory state to disk on every commit: the
// ledger as CSV, candidates and runs as YAML. Files are written atomically
// (temp file plus rename) so a crash mid-write never truncates state.
type FileRepository struct {
	*MemoryRepository
	ledgerFile string
	stateFile  string
	logger     logging.Logger
}

// Open loads reconciliation state from the given files. Missing files are not
// an error; they are created on the first commit.
func Open(ledgerFile, stateFile string, logger logging.Logger) (*FileRepository, error) {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}

	repo := &FileRepository{
		MemoryRepository: NewMemoryRepository(),
		ledgerFile:       ledgerFile,
		stateFile:        stateFile,
		logger:           logger,
	}

	if err := repo.loadLedger(); err != nil {
		return nil, err
	}
	if err := repo.loadState(); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *FileRepository) loadLedger() error {
	if r.ledgerFile == "" {
		return nil
	}
	data, err := os.ReadFile(r.ledgerFile)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Warn("ledger file not found, starting empty",
				logging.Field{Key: logging.FieldFile, Value: r.ledgerFile})
			return nil
		}
		return &reconerror.PersistenceFailure{Op: "read ledger file", Err: err}
	}

	var records []models.LedgerRecord
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return &reconerror.PersistenceFailure{Op: "decode ledger file", Err: err}
	}
	for _, rec := range records {
		if rec.Status == "" {
			rec.Status = models.StatusUnreconciled
		}
		r.ledger[rec.ID] = rec
	}

	r.logger.Debug("ledger loaded",
		logging.Field{Key: logging.FieldFile, Value: r.ledgerFile},
		logging.Field{Key: logging.FieldCount, Value: len(records)})
	return nil
}

func (r *FileRepository) loadState() error {
	if r.stateFile == "" {
		return nil
	}
	data, err := os.ReadFile(r.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &reconerror.PersistenceFailure{Op: "read state file", Err: err}
	}

	var doc stateDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &reconerror.PersistenceFailure{Op: "decode state file", Err: err}
	}
	for _, c := range doc.Candidates {
		r.candidates[c.ID] = c
	}
	for _, run := range doc.Runs {
		r.runs[run.ID] = run
	}
	return nil
}

// Begin opens a transaction whose commit also persists the new state to disk.
// The staged snapshot is written before it is published, so a failed write
// aborts the commit instead of leaving memory and disk out of sync.
func (r *FileRepository) Begin(ctx context.Context) (Tx, error) {
	tx, err := r.MemoryRepository.Begin(ctx)
	if err != nil {
		return nil, err
	}
	mtx := tx.(*memTx)
	mtx.onCommit = func() error { return r.persist(mtx) }
	return tx, nil
}

func (r *FileRepository) persist(tx *memTx) error {
	if err := r.persistLedger(tx.ledger); err != nil {
		return err
	}
	return r.persistState(tx.candidates, tx.runs)
}

func (r *FileRepository) persistLedger(ledger map[string]models.LedgerRecord) error {
	if r.ledgerFile == "" {
		return nil
	}
	records := make([]models.LedgerRecord, 0, len(ledger))
	for _, rec := range ledger {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	content, err := gocsv.MarshalString(&records)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	return writeAtomic(r.ledgerFile, []byte(content))
}

func (r *FileRepository) persistState(candidates map[string]models.MatchCandidate, runs map[string]models.ReconciliationRun) error {
	if r.stateFile == "" {
		return nil
	}
	doc := stateDocument{}
	for _, c := range candidates {
		doc.Candidates = append(doc.Candidates, c)
	}
	sort.Slice(doc.Candidates, func(i, j int) bool { return doc.Candidates[i].ID < doc.Candidates[j].ID })
	for _, run := range runs {
		doc.Runs = append(doc.Runs, run)
	}
	sort.Slice(doc.Runs, func(i, j int) bool { return doc.Runs[i].ID < doc.Runs[j].ID })

	content, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return writeAtomic(r.stateFile, content)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
