package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-materials/internal/retry"
)

// MockRetryRunner is a function-field mock of RetryRunner.
type MockRetryRunner struct {
	RunFn func(ctx context.Context) (*retry.Summary, error)
}

func (m *MockRetryRunner) Run(ctx context.Context) (*retry.Summary, error) {
	return m.RunFn(ctx)
}

func TestRetryHandler_RetryMaterials(t *testing.T) {
	tests := []struct {
		name           string
		runFn          func(ctx context.Context) (*retry.Summary, error)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "returns the summary",
			runFn: func(ctx context.Context) (*retry.Summary, error) {
				return &retry.Summary{
					VideosFound:       3,
					SuccessfulRetries: 1,
					PermanentFailures: 1,
					StillPending:      1,
					Errors:            []string{"vid-3: service unavailable"},
					Breakdown: retry.Breakdown{
						ChunkedGeneration: 1,
						ByErrorType:       map[string]int{"token_limit_output": 1, "rate_limit": 2},
					},
				}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "run already in progress",
			runFn: func(ctx context.Context) (*retry.Summary, error) {
				return nil, retry.ErrRunInProgress
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "A retry run is already in progress",
		},
		{
			name: "scan failure",
			runFn: func(ctx context.Context) (*retry.Summary, error) {
				return nil, errors.New("failed to scan videos: connection refused")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Failed to scan for videos to retry",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewRetryHandler(&MockRetryRunner{RunFn: tc.runFn}, testLogger())

			w := httptest.NewRecorder()
			h.RetryMaterials(w, httptest.NewRequest(http.MethodPost, "/internal/retry-materials", nil))

			require.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedError != "" {
				assert.Equal(t, tc.expectedError, decodeError(t, w.Body).Error)
				assert.NotContains(t, w.Body.String(), "connection refused")
				return
			}

			var body map[string]any
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, float64(3), body["videosFound"])
			assert.Equal(t, float64(1), body["successfulRetries"])
			assert.Equal(t, float64(1), body["permanentFailures"])
			assert.Equal(t, float64(1), body["stillPending"])
			assert.Equal(t, []any{"vid-3: service unavailable"}, body["errors"])

			breakdown, ok := body["breakdown"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, float64(1), breakdown["chunkedGeneration"])
			assert.Equal(t, float64(0), breakdown["standardRetry"])
			assert.Equal(t, map[string]any{"token_limit_output": float64(1), "rate_limit": float64(2)}, breakdown["byErrorType"])
		})
	}
}

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{err: ErrVideoNotPending, status: http.StatusConflict},
		{err: retry.ErrRunInProgress, status: http.StatusConflict},
		{err: errors.Join(errors.New("handler one"), retry.ErrRunInProgress), status: http.StatusConflict},
		{err: errors.New("anything else"), status: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.status, MapErrorToStatusCode(tc.err), tc.err.Error())
		assert.NotEmpty(t, GetSafeErrorMessage(tc.err))
	}
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}
