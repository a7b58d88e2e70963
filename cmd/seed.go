package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"seedgraph/core/database"
	"seedgraph/core/reconcile"
	"seedgraph/core/seeder"
	"seedgraph/core/utils"
	"seedgraph/feature/library"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the seed command
	dryRunSeed  bool
	migrateSeed bool
	yesConfirm  bool
)

// seedCmd applies the library fixtures to the configured database.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the library fixtures",
	Long: `Registers the library fixture graph, plans it against the configured
database and applies the plan.

Existing rows with the same primary key are handled by the policy:
  halt        stop when a stored row differs (identical rows are left alone)
  merge       overwrite stored rows
  skip        keep stored rows
  always_add  insert under a newly generated key

Examples:
  # Show the plan without writing
  seed --dry-run

  # Create tables first, then overwrite existing rows without prompting
  seed --migrate --policy merge --yes`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&dryRunSeed, "dry-run", false, "Plan only (no writes)")
	seedCmd.Flags().BoolVar(&migrateSeed, "migrate", false, "Create or update the library tables before seeding")
	seedCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm overwrites (non-interactive)")

	RootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, l, err := setup()
	if err != nil {
		return err
	}
	defer l.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	store := database.NewStore(db, database.WithStoreLogger(l))

	if migrateSeed {
		if err := store.Migrate(ctx, library.Types()...); err != nil {
			return err
		}
		l.Info("Migrated library tables")
	}

	s, err := seeder.NewFromConfig(cfg.Seeder, seeder.WithLogger(l))
	if err != nil {
		return err
	}
	if _, err := library.Register(s); err != nil {
		return fmt.Errorf("failed to register fixtures: %w", err)
	}

	// Step 1: Plan (always runs)
	l.Info("Planning seed run...", zap.String("policy", string(s.Policy())))
	plan, err := s.PlanStore(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to plan seed run: %w", err)
	}

	// Step 2: Print report
	printPlanReport(l, plan)

	if dryRunSeed {
		l.Info("Dry-run mode: No changes were made.")
		return nil
	}

	// Step 3: Apply (if confirmed)
	if plan.Summary.Inserts+plan.Summary.Overwrites == 0 {
		l.Info("No writes required.")
		return nil
	}
	if plan.Summary.Overwrites > 0 && !confirmOverwrite() {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	executed, err := reconcile.ApplyPlan(ctx, store, plan)
	if err != nil {
		return fmt.Errorf("failed to apply plan after %d writes: %w", executed, err)
	}
	l.Info("Successfully executed actions", zap.Int("count", executed))
	return nil
}

// printPlanReport logs the plan summary and a sample of the writes.
func printPlanReport(l *zap.Logger, plan *reconcile.Plan) {
	s := plan.Summary

	l.Info("Seed plan",
		zap.Strings("types", plan.Types),
		zap.Int("entities", s.Entities),
		zap.Int("inserts", s.Inserts),
		zap.Int("overwrites", s.Overwrites),
		zap.Int("skips", s.Skips),
		zap.Int("unchanged", s.Unchanged),
		zap.Int("rekeyed", s.Rekeyed),
	)
	if len(s.SkippedTypes) > 0 {
		l.Warn("Types without a table were skipped", zap.Strings("types", s.SkippedTypes))
	}

	const maxShow = 5
	shown, hidden := 0, 0
	for _, action := range plan.Actions {
		if action.Type == reconcile.ActionUnchanged {
			continue
		}
		if shown == maxShow {
			hidden++
			continue
		}
		fields := []zap.Field{
			zap.String("type", string(action.Type)),
			zap.String("entity", action.TypeName),
			zap.String("key", utils.ToString(action.Key)),
		}
		if action.Rekeyed() {
			fields = append(fields, zap.String("previous_key", utils.ToString(action.PreviousKey)))
		}
		if action.Reason != "" {
			fields = append(fields, zap.String("reason", action.Reason))
		}
		if len(action.Diff) > 0 {
			fields = append(fields, zap.Strings("diff", action.Diff))
		}
		l.Info("Sample action", fields...)
		shown++
	}
	if hidden > 0 {
		l.Info("Additional actions not shown", zap.Int("count", hidden))
	}
}

// confirmOverwrite prompts the user for confirmation or uses --yes flag.
func confirmOverwrite() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to overwrite existing rows: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}
