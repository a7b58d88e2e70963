package cmd

import (
	"fmt"
	"os"

	"seedgraph/core/config"
	"seedgraph/core/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags shared by every command
	configDir      string
	policyOverride string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "seedgraph",
	Short: "Object graph seeding tool",
	Long: `Seedgraph flattens hand-built object graphs into seed data.
It fills foreign keys from related entities, resolves duplicate keys by policy
and writes the result to a database or to seed files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console encoding at debug level gives readable ISO8601 timestamps for CLI errors
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			// Absolute fallback if logger creation fails (rare)
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory holding the .env file")
	RootCmd.PersistentFlags().StringVar(&policyOverride, "policy", "", "Duplicate-key policy: halt, merge, skip or always_add (overrides SEEDER_POLICY)")
}

// setup loads configuration, applies flag overrides and builds the run logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if policyOverride != "" {
		cfg.Seeder.Policy = policyOverride
		if !cfg.Seeder.IsValidPolicy() {
			return nil, nil, fmt.Errorf("invalid policy: %s", policyOverride)
		}
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.WithRunID(l, uuid.NewString()), nil
}
