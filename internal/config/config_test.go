package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with a throwaway HOME so no
// real config file leaks in.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
	t.Setenv("HOME", dir)
}

func TestInitializeConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "20060102", cfg.Statement.DateFormat)
	assert.True(t, cfg.Statement.StrictValidation)
	assert.Equal(t, 3, cfg.Matching.DateWindowDays)
	assert.Equal(t, 1.0, cfg.Matching.AmountTolerancePercent)
	assert.Equal(t, 50, cfg.Matching.AmountToleranceCents)
	assert.Equal(t, 0.3, cfg.Matching.MinScore)
	assert.GreaterOrEqual(t, cfg.Matching.Workers, 1)
	assert.InDelta(t, 1.0, cfg.Matching.Weights.Amount+cfg.Matching.Weights.Date+cfg.Matching.Weights.Description, 1e-9)
	assert.Equal(t, "ledger.csv", cfg.Data.LedgerFile)
	assert.Equal(t, "recon-state.yaml", cfg.Data.StateFile)
}

func TestInitializeConfigFromFile(t *testing.T) {
	isolate(t)

	content := `log:
  level: debug
  format: json
matching:
  date_window_days: 7
data:
  ledger_file: books.csv
`
	require.NoError(t, os.MkdirAll(".bankrecon", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(".bankrecon", "config.yaml"), []byte(content), 0o600))

	cfg, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 7, cfg.Matching.DateWindowDays)
	assert.Equal(t, "books.csv", cfg.Data.LedgerFile)
	// Unset keys keep their defaults.
	assert.Equal(t, 0.3, cfg.Matching.MinScore)
}

func TestInitializeConfigEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("BANKRECON_LOG_LEVEL", "warn")
	t.Setenv("BANKRECON_MATCHING_MIN_SCORE", "0.5")

	cfg, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 0.5, cfg.Matching.MinScore)
}

func TestInitializeConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		wants string
	}{
		{
			name:  "bad log level",
			env:   map[string]string{"BANKRECON_LOG_LEVEL": "verbose"},
			wants: "invalid log level",
		},
		{
			name:  "bad log format",
			env:   map[string]string{"BANKRECON_LOG_FORMAT": "xml"},
			wants: "invalid log format",
		},
		{
			name:  "negative window",
			env:   map[string]string{"BANKRECON_MATCHING_DATE_WINDOW_DAYS": "-1"},
			wants: "date_window_days",
		},
		{
			name:  "min score out of range",
			env:   map[string]string{"BANKRECON_MATCHING_MIN_SCORE": "1.5"},
			wants: "min_score",
		},
		{
			name:  "zero workers",
			env:   map[string]string{"BANKRECON_MATCHING_WORKERS": "0"},
			wants: "workers",
		},
		{
			name:  "weights do not sum to one",
			env:   map[string]string{"BANKRECON_MATCHING_WEIGHTS_AMOUNT": "0.9"},
			wants: "weights must sum to 1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := InitializeConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wants)
		})
	}
}

func TestConfigureLoggingFromConfig(t *testing.T) {
	cfg := &Config{}
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"

	logger := ConfigureLoggingFromConfig(cfg)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	cfg.Log.Level = "nonsense"
	cfg.Log.Format = "text"
	logger = ConfigureLoggingFromConfig(cfg)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
