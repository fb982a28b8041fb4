package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/scry-materials/internal/api/shared"
	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/events"
	"github.com/phrazzld/scry-materials/internal/retry"
	"github.com/phrazzld/scry-materials/internal/store"
	"github.com/phrazzld/scry-materials/internal/task"
)

// ErrVideoNotPending is returned when generation is requested for a video
// that has already left the pending state.
var ErrVideoNotPending = errors.New("video is not pending")

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the error itself.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrVideoNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrVideoExists),
		errors.Is(err, retry.ErrRunInProgress),
		errors.Is(err, ErrVideoNotPending):
		return http.StatusConflict

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrEmptyVideoID),
		errors.Is(err, domain.ErrEmptyVideoUserID):
		return http.StatusBadRequest

	// The video is stored as pending either way; the task runner picks it
	// up on its next recovery pass.
	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed),
		errors.Is(err, events.ErrNoHandlers):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, store.ErrVideoNotFound):
		return "Video not found"
	case errors.Is(err, store.ErrVideoExists):
		return "Video already exists"
	case errors.Is(err, retry.ErrRunInProgress):
		return "A retry run is already in progress"
	case errors.Is(err, ErrVideoNotPending):
		return "Video is not pending"
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrEmptyVideoID),
		errors.Is(err, domain.ErrEmptyVideoUserID):
		return "Invalid video data"
	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed),
		errors.Is(err, events.ErrNoHandlers):
		return "Generation queue unavailable, the request will be retried"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err. A non-empty
// message overrides the safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), message, err)
}
