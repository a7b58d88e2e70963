package cmd

import (
	"context"
	"fmt"

	"seedgraph/core/reconcile"
	"seedgraph/core/seeder"
	"seedgraph/core/storage"
	"seedgraph/feature/library"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the export command
	exportDir    string
	exportFormat string
	exportPrune  bool
)

// exportCmd writes the library fixtures as seed files.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the library fixtures as seed files",
	Long: `Materializes the library fixture graph into one seed file per entity type.

Files go to the configured bucket under the storage prefix, or to a local
directory when --dir is set. Duplicate keys inside the fixtures are grouped
by the policy: merge keeps the last entity, always_add the first.

Examples:
  # Upload YAML seeds and remove files of types no longer exported
  export --prune

  # Write JSON seeds locally
  export --dir ./seeds --format json`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Write seed files to this local directory instead of object storage")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "Seed file format: yaml, json or msgpack (overrides STORAGE_FORMAT)")
	exportCmd.Flags().BoolVar(&exportPrune, "prune", false, "Remove stale seed files from the bucket after uploading")

	RootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, l, err := setup()
	if err != nil {
		return err
	}
	defer l.Sync()

	if exportFormat != "" {
		cfg.Storage.Format = exportFormat
	}

	s, err := seeder.NewFromConfig(cfg.Seeder, seeder.WithLogger(l))
	if err != nil {
		return err
	}
	if _, err := library.Register(s); err != nil {
		return fmt.Errorf("failed to register fixtures: %w", err)
	}

	var sink reconcile.Sink
	var objects *storage.ObjectSink
	var codec storage.Codec
	if exportDir != "" {
		codec, err = storage.CodecFor(cfg.Storage.Format)
		if err != nil {
			return err
		}
		sink = storage.NewDirSink(exportDir, codec, storage.WithSinkLogger(l))
	} else {
		objects, err = storage.NewObjectSinkFromConfig(cfg.Storage, storage.WithSinkLogger(l))
		if err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			return err
		}
		codec = objects.Codec()
		sink = objects
	}

	plan, err := s.ApplyToSink(ctx, sink)
	if err != nil {
		return fmt.Errorf("failed to export seeds: %w", err)
	}
	l.Info("Exported seed files",
		zap.String("format", codec.Name()),
		zap.Strings("types", plan.Types),
		zap.Int("collisions", plan.Summary.Collisions),
	)

	if exportPrune {
		if objects == nil {
			l.Warn("--prune only applies to object storage exports")
			return nil
		}
		removed, err := objects.Prune(ctx)
		if err != nil {
			return err
		}
		l.Info("Prune finished", zap.Int("removed", removed))
	}
	return nil
}
