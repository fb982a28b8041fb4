// Package main is the entry point for the materials service. It serves the
// internal HTTP API and runs first-pass generation and the scheduled retry
// pass in the background.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-materials/internal/config"
	"github.com/phrazzld/scry-materials/internal/platform/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Study materials generation service",
	Long: "Generates study materials from video transcripts and retries videos " +
		"whose materials were left incomplete.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to a YAML config file (overrides SCRY_CONFIG_FILE)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and sets up the default logger from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, log, nil
}
