package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-materials/internal/platform/logger"
)

func TestRespondWithJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusAccepted, map[string]any{"video_id": "abc", "count": 3})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "abc", body["video_id"])
	assert.Equal(t, float64(3), body["count"])
}

func TestRespondWithJSONEncodingError(t *testing.T) {
	var logBuf strings.Builder
	log := slog.New(slog.NewTextHandler(&logBuf, nil))
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(logger.WithLogger(req.Context(), log))
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, logBuf.String(), "failed to encode JSON response")
}

func TestRespondWithError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(WithTraceID(context.Background(), "test-trace-id"))
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusNotFound, "Video not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Video not found", response.Error)
	assert.Equal(t, "test-trace-id", response.TraceID)
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectedLevel string
	}{
		{name: "server error", status: http.StatusInternalServerError, expectedLevel: "level=ERROR"},
		{name: "unavailable", status: http.StatusServiceUnavailable, expectedLevel: "level=WARN"},
		{name: "conflict", status: http.StatusConflict, expectedLevel: "level=WARN"},
		{name: "client error", status: http.StatusBadRequest, expectedLevel: "level=DEBUG"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var logBuf strings.Builder
			log := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			ctx := logger.WithLogger(WithTraceID(context.Background(), "test-trace-id"), log)
			req := httptest.NewRequest(http.MethodPost, "/internal/retry-materials", nil).WithContext(ctx)
			w := httptest.NewRecorder()

			err := errors.New("dial tcp: password=hunter2 refused")
			RespondWithErrorAndLog(w, req, tc.status, "Something went wrong", err)

			assert.Equal(t, tc.status, w.Code)
			assert.NotContains(t, w.Body.String(), "hunter2", "raw errors must not reach the client")

			var response ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "Something went wrong", response.Error)
			assert.Equal(t, "test-trace-id", response.TraceID)

			out := logBuf.String()
			assert.Contains(t, out, tc.expectedLevel)
			assert.Contains(t, out, "error_type=")
			assert.NotContains(t, out, "hunter2", "logged errors must be redacted")
		})
	}
}
