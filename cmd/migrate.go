package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"helpdesk/internal/config"
	"helpdesk/internal/db"
	"helpdesk/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the ticket schema",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	appLogger := logger.New(cfg.Environment, cfg.LogLevel)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if sqlDB, err := database.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := db.Migrate(database, appLogger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	appLogger.Info().Msg("migrate: ok")
	return nil
}
