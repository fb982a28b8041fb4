package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-materials/internal/config"
	"github.com/phrazzld/scry-materials/internal/platform/logger"
	"github.com/phrazzld/scry-materials/internal/platform/postgres"
)

var migrateDatabaseURL string

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Run database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{postgres.MigrateUp, postgres.MigrateDown, postgres.MigrateStatus},
	RunE:      runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDatabaseURL, "database-url", "",
		"Database URL; when set, the rest of the configuration is not loaded")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dbCfg, log, err := migrateTarget()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database connection", "error", err)
		}
	}()

	return postgres.Migrate(ctx, db, args[0], log)
}

// migrateTarget resolves the database to migrate. A --database-url flag
// skips full configuration, which would otherwise demand provider keys.
func migrateTarget() (config.DatabaseConfig, *slog.Logger, error) {
	if migrateDatabaseURL == "" {
		cfg, log, err := loadConfig()
		if err != nil {
			return config.DatabaseConfig{}, nil, err
		}
		return cfg.Database, log, nil
	}

	log, err := logger.Setup(config.ServerConfig{LogLevel: "info", LogFormat: "text"})
	if err != nil {
		return config.DatabaseConfig{}, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return config.DatabaseConfig{URL: migrateDatabaseURL}, log, nil
}
