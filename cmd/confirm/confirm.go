// Package confirm handles the candidate confirmation command.
package confirm

import (
	"fmt"

	"github.com/spf13/cobra"

	"bankrecon/cmd/root"
	"bankrecon/internal/recon"
)

// Cmd represents the confirm command.
var Cmd = &cobra.Command{
	Use:   "confirm <candidate-id>",
	Short: "Confirm a proposed match candidate",
	Long: `Confirm a proposed match candidate. The ledger record is marked as
reconciled and every competing pending candidate is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: confirmFunc,
}

func confirmFunc(cmd *cobra.Command, args []string) error {
	repo, err := root.OpenRepository()
	if err != nil {
		return err
	}

	manager := recon.NewManager(repo, root.Log)
	rec, err := manager.Confirm(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Confirmed: ledger record %s (%s %s, %s) is now reconciled.\n",
		rec.ID, rec.Amount.StringFixed(2), rec.Kind, rec.Date.Format("2006-01-02"))
	return nil
}
