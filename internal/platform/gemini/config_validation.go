package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/phrazzld/scry-materials/internal/config"
	"github.com/phrazzld/scry-materials/internal/generation"
)

// validateConfig checks the settings the generator cannot work without.
// Out-of-range optional settings are logged and left for the caller to fix.
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) error {
	if cfg.GeminiAPIKey == "" {
		logger.ErrorContext(ctx, "Missing Gemini API key")
		return fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		logger.ErrorContext(ctx, "Missing model name")
		return fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.MaxInputTokens < 0 {
		return fmt.Errorf("%w: max input tokens cannot be negative", generation.ErrInvalidConfig)
	}

	if cfg.MaxInputTokens == 0 {
		logger.WarnContext(ctx, "No input token budget configured",
			"action", "pre-flight context length check disabled")
	}

	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return fmt.Errorf("%w: temperature %.2f outside [0, 2]", generation.ErrInvalidConfig, cfg.Temperature)
	}

	if cfg.PromptDir != "" {
		info, err := os.Stat(cfg.PromptDir)
		if err != nil {
			return fmt.Errorf("%w: prompt directory %s: %v", generation.ErrInvalidConfig, cfg.PromptDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: prompt directory %s is not a directory", generation.ErrInvalidConfig, cfg.PromptDir)
		}
	}

	return nil
}
