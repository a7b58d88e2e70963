package cmd

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"seedgraph/core/database"
	"seedgraph/core/graph"
	"seedgraph/core/seeder"
	"seedgraph/core/utils"
	"seedgraph/feature/library"

	"github.com/spf13/cobra"
)

// Flags for the inspect command
var inspectTables bool

// tableNamer resolves the table an entity type is stored in.
type tableNamer interface {
	TableName(t reflect.Type) (string, error)
}

// inspectCmd prints the field maps of the registered fixture graph.
var inspectCmd = &cobra.Command{
	Use:   "inspect [type]",
	Short: "Print the flattened library fixtures",
	Long: `Registers the library fixture graph and prints every entity as the
relation-free record that would be seeded, with foreign keys filled in.
An optional type name (case-insensitive) limits the output. With --tables
each type is followed by the table it maps to in the configured database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := ""
		if len(args) == 1 {
			filter = args[0]
		}
		s, err := seeder.New("halt")
		if err != nil {
			return err
		}
		if _, err := library.Register(s); err != nil {
			return err
		}

		var tables tableNamer
		if inspectTables {
			cfg, l, err := setup()
			if err != nil {
				return err
			}
			defer l.Sync()
			db, err := database.Connect(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			tables = database.NewStore(db, database.WithStoreLogger(l))
		}
		return printFieldMaps(cmd.OutOrStdout(), s, filter, tables)
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectTables, "tables", false, "Show the database table of each type")

	RootCmd.AddCommand(inspectCmd)
}

// printFieldMaps writes each matching type's records. tables may be nil.
func printFieldMaps(w io.Writer, s *seeder.Seeder, filter string, tables tableNamer) error {
	matched := false
	for _, t := range s.Registry().Types() {
		info := graph.MustDescribe(t)
		if filter != "" && !strings.EqualFold(info.Name, filter) {
			continue
		}
		matched = true

		records, err := s.FieldMaps(t)
		if err != nil {
			return err
		}
		if tables != nil {
			table, err := tables.TableName(t)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s (%d) table=%s\n", info.Name, len(records), table)
		} else {
			fmt.Fprintf(w, "%s (%d)\n", info.Name, len(records))
		}
		for _, rec := range records {
			parts := make([]string, len(rec.Fields))
			for i, f := range rec.Fields {
				parts[i] = f.Name + "=" + utils.ToString(f.Value)
			}
			fmt.Fprintf(w, "  %s\n", strings.Join(parts, " "))
		}
	}
	if !matched && filter != "" {
		return fmt.Errorf("unknown type: %s", filter)
	}
	return nil
}
