package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	applog "corp-tax-agent-be/internal/pkg/logger"
	"corp-tax-agent-be/internal/repository/unitofwork"
	"corp-tax-agent-be/pkg/tax/snapshot"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const defaultSnapshotGlob = "configs/snapshots/*.yaml"

var snapshotOutput string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage tax parameter snapshots",
	Long: `Parameter snapshots are immutable once stored. Import adds new versions
and skips versions that already exist.

Available subcommands:
  import - Load snapshot YAML files into the database
  list   - Show stored snapshots`,
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import snapshot definitions (defaults to " + defaultSnapshotGlob + ")",
	RunE:  runSnapshotImport,
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	RunE:  runSnapshotList,
}

func init() {
	snapshotListCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "table", "output format (table or yaml)")
	snapshotCmd.AddCommand(snapshotImportCmd, snapshotListCmd)
}

func newLoader() (*snapshot.Loader, error) {
	db, err := openDatabase(currentConfig())
	if err != nil {
		return nil, err
	}
	return snapshot.NewLoader(unitofwork.NewRepositoryFactory(db), applog.NewNopLogger()), nil
}

func runSnapshotImport(cmd *cobra.Command, args []string) error {
	files := args
	if len(files) == 0 {
		matches, err := filepath.Glob(defaultSnapshotGlob)
		if err != nil {
			return err
		}
		files = matches
	}
	if len(files) == 0 {
		return fmt.Errorf("no snapshot files given and none match %s", defaultSnapshotGlob)
	}

	loader, err := newLoader()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	existing, err := loader.List(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, s := range existing {
		known[s.Version] = true
	}

	out := cmd.OutOrStdout()
	imported := 0
	for _, file := range files {
		def, err := snapshot.ReadDefinitionFile(file)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if known[def.Version] {
			color.New(color.FgYellow).Fprintf(out, "skip   %s (version %s exists)\n", file, def.Version)
			continue
		}
		snap, err := def.ToEntity()
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if err := loader.Create(ctx, snap); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		known[def.Version] = true
		imported++
		logger.Debug("snapshot imported", zap.String("file", file), zap.String("version", def.Version))
		color.New(color.FgGreen).Fprintf(out, "import %s (version %s)\n", file, def.Version)
	}

	fmt.Fprintf(out, "%d imported, %d skipped\n", imported, len(files)-imported)
	return nil
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	loader, err := newLoader()
	if err != nil {
		return err
	}
	snaps, err := loader.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch snapshotOutput {
	case "yaml":
		defs := make([]*snapshot.Definition, 0, len(snaps))
		for _, s := range snaps {
			defs = append(defs, snapshot.FromEntity(s))
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(defs)
	case "table", "":
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tFORMULA\tEFFECTIVE FROM\tEFFECTIVE TO\tPARAMS")
		for _, s := range snaps {
			to := "-"
			if s.EffectiveTo != nil {
				to = s.EffectiveTo.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", s.Version, s.Formula, s.EffectiveFrom.Format("2006-01-02"), to, len(s.Parameters))
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown output format %q", snapshotOutput)
	}
}
