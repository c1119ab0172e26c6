// Package reject handles the candidate rejection command.
package reject

import (
	"fmt"

	"github.com/spf13/cobra"

	"bankrecon/cmd/root"
	"bankrecon/internal/recon"
)

// Cmd represents the reject command.
var Cmd = &cobra.Command{
	Use:   "reject <candidate-id>",
	Short: "Reject a proposed match candidate",
	Long: `Reject a proposed match candidate. The ledger record returns to the
unreconciled pool when no other pending candidate references it.`,
	Args: cobra.ExactArgs(1),
	RunE: rejectFunc,
}

func rejectFunc(cmd *cobra.Command, args []string) error {
	repo, err := root.OpenRepository()
	if err != nil {
		return err
	}

	manager := recon.NewManager(repo, root.Log)
	if err := manager.Reject(cmd.Context(), args[0]); err != nil {
		return err
	}

	fmt.Printf("Rejected candidate %s.\n", args[0])
	return nil
}
