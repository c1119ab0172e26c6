package ledger

import (
	"fmt"
	"os"

	"bankrecon/internal/models"

	"github.com/gocarina/gocsv"
)

// ImportFile reads ledger records from a CSV file. Records without an
// explicit status are treated as unreconciled. Duplicate identifiers are
// rejected, since the matcher and state manager key everything on them.
func ImportFile(path string) ([]models.LedgerRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening ledger file: %w", err)
	}
	defer f.Close()

	var records []models.LedgerRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, fmt.Errorf("error parsing ledger file: %w", err)
	}

	seen := make(map[string]struct{}, len(records))
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			return nil, fmt.Errorf("ledger record %d has no identifier", i)
		}
		if _, dup := seen[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate ledger record identifier: %s", rec.ID)
		}
		seen[rec.ID] = struct{}{}

		if rec.Status == "" {
			rec.Status = models.StatusUnreconciled
		}
		if rec.Amount.IsNegative() {
			return nil, fmt.Errorf("ledger record %s has a negative amount; use Kind=OUTFLOW", rec.ID)
		}
	}

	return records, nil
}

// ExportFile writes ledger records to a CSV file.
func ExportFile(path string, records []models.LedgerRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating ledger file: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("error writing ledger file: %w", err)
	}
	return nil
}
