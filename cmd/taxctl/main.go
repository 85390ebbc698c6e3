// Command taxctl is the operator CLI for the corporate tax agent: schema
// migration, parameter snapshot management, an interactive chat REPL and
// retrieval search.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"corp-tax-agent-be/internal/bootstrap"
	"corp-tax-agent-be/internal/config"
	"corp-tax-agent-be/pkg/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

var (
	verbose  bool
	dbDriver string
	dbDSN    string

	logger *zap.Logger

	// loadConfig is replaced in tests.
	loadConfig = config.Load
)

var rootCmd = &cobra.Command{
	Use:   "taxctl",
	Short: "Operate the corporate tax agent",
	Long: `taxctl talks to the same database as the REST server.

Run "taxctl chat" for an interactive session, or "taxctl snapshot import"
to load parameter snapshots from configs/snapshots.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "database driver (postgres or sqlite), overrides DB_DRIVER")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db", "", "database connection string, overrides DB_CONNECTION_STRING")

	rootCmd.AddCommand(migrateCmd, snapshotCmd, chatCmd, searchCmd, eventsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func currentConfig() *config.Config {
	cfg := loadConfig()
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if dbDSN != "" {
		cfg.Database.Connection = dbDSN
	}
	return cfg
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database.Driver, cfg.Database.Connection)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// openContainer wires the full pipeline the way the REST server does.
// Callers must Close the container.
func openContainer(ctx context.Context) (*bootstrap.Container, error) {
	cfg := currentConfig()
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	return bootstrap.NewContainer(ctx, db, cfg)
}
