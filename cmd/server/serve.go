package main

import (
	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-materials/internal/platform/postgres"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	log.Info("Application initialized",
		"port", cfg.Server.Port,
		"retry_schedule", cfg.Retry.Schedule,
		"task_workers", cfg.Task.WorkerCount)

	return app.run(ctx)
}
