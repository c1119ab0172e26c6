// Package ledger handles ledger import and listing commands.
package ledger

import (
	"fmt"

	"github.com/spf13/cobra"

	"bankrecon/cmd/root"
	ledgercsv "bankrecon/internal/ledger"
)

// Cmd represents the ledger command group.
var Cmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage ledger records",
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import ledger records from a CSV file",
	Long: `Import ledger records from a CSV file into the configured ledger store.
Existing records with the same identifier are replaced. Records without an
explicit status are imported as unreconciled.`,
	RunE: importFunc,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger records and their reconciliation status",
	RunE:  listFunc,
}

func init() {
	Cmd.AddCommand(importCmd)
	Cmd.AddCommand(listCmd)
}

func importFunc(cmd *cobra.Command, args []string) error {
	input := root.SharedFlags.Input
	if input == "" {
		return fmt.Errorf("an input CSV file is required (--input)")
	}

	records, err := ledgercsv.ImportFile(input)
	if err != nil {
		return err
	}

	repo, err := root.OpenRepository()
	if err != nil {
		return err
	}

	tx, err := repo.Begin(cmd.Context())
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rec := range records {
		if err := tx.PutLedgerRecord(rec); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	fmt.Printf("Imported %d ledger records from %s.\n", len(records), input)
	return nil
}

func listFunc(cmd *cobra.Command, args []string) error {
	repo, err := root.OpenRepository()
	if err != nil {
		return err
	}

	records, err := repo.LedgerRecords(cmd.Context())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("The ledger is empty.")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  %s  %9s  %-7s  %-12s  %s\n", rec.ID, rec.Date.Format("2006-01-02"),
			rec.Amount.StringFixed(2), rec.Kind, rec.Status, rec.Description)
	}
	return nil
}
