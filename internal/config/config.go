// Package config provides Viper-based hierarchical configuration management.
package config

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Statement struct {
		// DateFormat is the Go layout used for statement dates.
		DateFormat string `mapstructure:"date_format" yaml:"date_format"`
		// Currency is the expected statement currency; a mismatch is
		// reported but does not abort parsing.
		Currency string `mapstructure:"currency" yaml:"currency"`
		// StrictValidation requires a well-formed transaction list
		// container before any entries are decoded.
		StrictValidation bool `mapstructure:"strict_validation" yaml:"strict_validation"`
	} `mapstructure:"statement" yaml:"statement"`

	Matching struct {
		// DateWindowDays is N in the default search window
		// [date-N, date+N]. The fuzzy pass doubles it.
		DateWindowDays int `mapstructure:"date_window_days" yaml:"date_window_days"`
		// AmountTolerancePercent and AmountToleranceCents bound the
		// fuzzy amount comparison; the larger of the two applies.
		AmountTolerancePercent float64 `mapstructure:"amount_tolerance_percent" yaml:"amount_tolerance_percent"`
		AmountToleranceCents   int     `mapstructure:"amount_tolerance_cents" yaml:"amount_tolerance_cents"`
		// MinScore is the floor below which fuzzy candidates are dropped.
		MinScore float64 `mapstructure:"min_score" yaml:"min_score"`
		Workers  int     `mapstructure:"workers" yaml:"workers"`

		Weights struct {
			Amount      float64 `mapstructure:"amount" yaml:"amount"`
			Date        float64 `mapstructure:"date" yaml:"date"`
			Description float64 `mapstructure:"description" yaml:"description"`
		} `mapstructure:"weights" yaml:"weights"`
	} `mapstructure:"matching" yaml:"matching"`

	Data struct {
		LedgerFile string `mapstructure:"ledger_file" yaml:"ledger_file"`
		StateFile  string `mapstructure:"state_file" yaml:"state_file"`
	} `mapstructure:"data" yaml:"data"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading:
// defaults, then an optional config file, then BANKRECON_* environment
// variables.
func InitializeConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.bankrecon")
	v.AddConfigPath(".bankrecon")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BANKRECON")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Log the error but don't fail - continue with defaults and env vars
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("statement.date_format", "20060102")
	v.SetDefault("statement.currency", "")
	v.SetDefault("statement.strict_validation", true)

	v.SetDefault("matching.date_window_days", 3)
	v.SetDefault("matching.amount_tolerance_percent", 1.0)
	v.SetDefault("matching.amount_tolerance_cents", 50)
	v.SetDefault("matching.min_score", 0.3)
	v.SetDefault("matching.workers", runtime.NumCPU())
	v.SetDefault("matching.weights.amount", 0.5)
	v.SetDefault("matching.weights.date", 0.3)
	v.SetDefault("matching.weights.description", 0.2)

	v.SetDefault("data.ledger_file", "ledger.csv")
	v.SetDefault("data.state_file", "recon-state.yaml")
}

// validateConfig validates the configuration values.
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Statement.DateFormat == "" {
		return fmt.Errorf("statement.date_format must not be empty")
	}

	m := &config.Matching
	if m.DateWindowDays < 0 {
		return fmt.Errorf("matching.date_window_days must not be negative, got: %d", m.DateWindowDays)
	}
	if m.AmountTolerancePercent < 0 {
		return fmt.Errorf("matching.amount_tolerance_percent must not be negative, got: %f", m.AmountTolerancePercent)
	}
	if m.AmountToleranceCents < 0 {
		return fmt.Errorf("matching.amount_tolerance_cents must not be negative, got: %d", m.AmountToleranceCents)
	}
	if m.MinScore < 0 || m.MinScore > 1 {
		return fmt.Errorf("matching.min_score must be between 0.0 and 1.0, got: %f", m.MinScore)
	}
	if m.Workers < 1 {
		return fmt.Errorf("matching.workers must be at least 1, got: %d", m.Workers)
	}

	sum := m.Weights.Amount + m.Weights.Date + m.Weights.Description
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("matching weights must sum to 1.0, got: %f", sum)
	}

	return nil
}

// ConfigureLoggingFromConfig configures a logrus logger based on the Config.
func ConfigureLoggingFromConfig(config *Config) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.ToLower(config.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
