// Package runs handles the run summary listing command.
package runs

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bankrecon/cmd/root"
)

// Cmd represents the runs command.
var Cmd = &cobra.Command{
	Use:   "runs",
	Short: "List reconciliation run summaries",
	RunE:  runsFunc,
}

func runsFunc(cmd *cobra.Command, args []string) error {
	repo, err := root.OpenRepository()
	if err != nil {
		return err
	}

	runs, err := repo.Runs(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No reconciliation runs recorded.")
		return nil
	}

	for _, run := range runs {
		fmt.Printf("%s  %s  %s  %s\n", run.ID, run.StartedAt.Format("2006-01-02 15:04:05"),
			strings.ToLower(string(run.Status)), run.Source)
		fmt.Printf("    entries: %d  exact: %d  fuzzy: %d  ambiguous: %d  unmatched: %d  lookup failures: %d  parse errors: %d\n",
			run.Counts.Entries, run.Counts.Exact, run.Counts.Fuzzy, run.Counts.Ambiguous,
			run.Counts.Unmatched, run.Counts.LookupFailed, run.Counts.ParseErrors)
	}
	return nil
}
