package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-materials/internal/platform/postgres"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Run one retry pass and print its summary as JSON",
	RunE:  runRetry,
}

func init() {
	rootCmd.AddCommand(retryCmd)
}

func runRetry(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer app.cleanup()

	summary, err := app.coordinator.Run(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
