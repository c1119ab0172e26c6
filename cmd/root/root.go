// Package root contains the root command and the shared wiring used by all
// subcommands.
package root

import (
	"github.com/spf13/cobra"

	"bankrecon/internal/config"
	"bankrecon/internal/ledger"
	"bankrecon/internal/logging"
	"bankrecon/internal/matcher"
	"bankrecon/internal/ofxparser"
	"bankrecon/internal/recon"
	"bankrecon/internal/store"
)

// CommonFlags represents the flags shared by multiple commands.
type CommonFlags struct {
	Input string
}

var (
	// Cfg is the loaded application configuration.
	Cfg *config.Config

	// Log is the shared logger instance for commands.
	Log logging.Logger = logging.NewLogrusAdapter("info", "text")

	// SharedFlags holds flag values common to all commands.
	SharedFlags = CommonFlags{}

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "bankrecon",
		Short: "Reconcile bank statement exports against the internal ledger.",
		Long: `bankrecon ingests OFX-style bank statement exports and matches their
transactions against internally recorded sales and expenses, producing ranked
match candidates for human confirmation.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.InitializeConfig()
			if err != nil {
				return err
			}
			Cfg = cfg
			Log = logging.NewLogrusAdapterFromLogger(config.ConfigureLoggingFromConfig(cfg))
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
)

// Init registers the persistent flags on the root command.
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Input, "input", "i", "", "Input file")
}

// OpenRepository opens the configured file-backed repository.
func OpenRepository() (store.Repository, error) {
	repo, err := store.Open(Cfg.Data.LedgerFile, Cfg.Data.StateFile, Log)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// MatcherConfig converts the application config into a matcher configuration.
func MatcherConfig() matcher.Config {
	m := Cfg.Matching
	return matcher.Config{
		DateWindowDays:         m.DateWindowDays,
		AmountTolerancePercent: m.AmountTolerancePercent,
		AmountToleranceCents:   m.AmountToleranceCents,
		MinScore:               m.MinScore,
		Workers:                m.Workers,
		Weights: matcher.Weights{
			Amount:      m.Weights.Amount,
			Date:        m.Weights.Date,
			Description: m.Weights.Description,
		},
	}
}

// NewService builds the full reconciliation pipeline over the repository.
func NewService(repo store.Repository) *recon.Service {
	parser := ofxparser.New(ofxparser.Options{
		DateFormat:       Cfg.Statement.DateFormat,
		Currency:         Cfg.Statement.Currency,
		StrictValidation: Cfg.Statement.StrictValidation,
	}, Log)

	mcfg := MatcherConfig()
	engine := matcher.NewEngine(mcfg, Log)

	reader := ledger.NewReader(repo, ledger.Options{
		AmountSlackPercent: mcfg.AmountTolerancePercent * 2,
		AmountSlackCents:   mcfg.AmountToleranceCents * 2,
	}, Log)

	manager := recon.NewManager(repo, Log)
	return recon.NewService(parser, engine, reader, manager, repo, Log)
}
