package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-materials/internal/api/shared"
	"github.com/phrazzld/scry-materials/internal/platform/logger"
	"github.com/phrazzld/scry-materials/internal/retry"
)

// RetryRunner runs one retry pass. *retry.Coordinator implements it.
type RetryRunner interface {
	Run(ctx context.Context) (*retry.Summary, error)
}

// RetryHandler exposes the retry coordinator over HTTP for external
// schedulers.
type RetryHandler struct {
	runner RetryRunner
	logger *slog.Logger
}

// NewRetryHandler creates a new RetryHandler.
func NewRetryHandler(runner RetryRunner, logger *slog.Logger) *RetryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryHandler{
		runner: runner,
		logger: logger.With("component", "retry_handler"),
	}
}

// RetryMaterials handles POST /internal/retry-materials. The pass runs
// synchronously and the Summary is the response body. Job failures are
// reported inside the Summary; only a failed scan answers 500.
func (h *RetryHandler) RetryMaterials(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	summary, err := h.runner.Run(r.Context())
	if err != nil {
		if errors.Is(err, retry.ErrRunInProgress) {
			HandleAPIError(w, r, err, "")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to scan for videos to retry", err)
		return
	}

	log.Info("retry pass finished via HTTP",
		"videos_found", summary.VideosFound,
		"successful_retries", summary.SuccessfulRetries,
		"still_pending", summary.StillPending)

	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}
