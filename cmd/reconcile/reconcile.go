// Package reconcile handles the statement reconciliation command.
package reconcile

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bankrecon/cmd/root"
)

// Cmd represents the reconcile command.
var Cmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run reconciliation for a bank statement export",
	Long: `Parse a bank statement export, match its transactions against the
unreconciled ledger and persist the resulting match proposals for review.`,
	RunE: reconcileFunc,
}

func reconcileFunc(cmd *cobra.Command, args []string) error {
	input := root.SharedFlags.Input
	if input == "" {
		return fmt.Errorf("an input statement file is required (--input)")
	}

	repo, err := root.OpenRepository()
	if err != nil {
		return err
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("error opening statement file: %w", err)
	}
	defer f.Close()

	service := root.NewService(repo)
	run, candidates, err := service.Run(cmd.Context(), input, f)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s finished: %s\n", run.ID, strings.ToLower(string(run.Status)))
	fmt.Printf("  entries: %d  exact: %d  fuzzy: %d  ambiguous: %d  unmatched: %d  lookup failures: %d  parse errors: %d\n",
		run.Counts.Entries, run.Counts.Exact, run.Counts.Fuzzy, run.Counts.Ambiguous,
		run.Counts.Unmatched, run.Counts.LookupFailed, run.Counts.ParseErrors)

	if len(candidates) == 0 {
		fmt.Println("No match proposals.")
		return nil
	}

	fmt.Println("Proposed candidates:")
	for _, c := range candidates {
		marker := ""
		if c.Ambiguous {
			marker = " (ambiguous)"
		}
		if c.Rank > 0 {
			marker += fmt.Sprintf(" (alternative #%d)", c.Rank)
		}
		fmt.Printf("  %s  score %.3f  statement %s -> ledger %s  [%s]%s\n",
			c.ID, c.Score, c.StatementRef, c.LedgerID, strings.Join(c.Criteria, ", "), marker)
	}
	fmt.Println("Use 'bankrecon confirm <candidate-id>' or 'bankrecon reject <candidate-id>' to resolve them.")
	return nil
}
