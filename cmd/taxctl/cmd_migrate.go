package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	if _, err := openDatabase(cfg); err != nil {
		return err
	}
	logger.Debug("migration finished", zap.String("driver", cfg.Database.Driver))
	color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
	return nil
}
