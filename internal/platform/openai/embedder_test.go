package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-materials/internal/config"
	"github.com/phrazzld/scry-materials/internal/generation"
)

type embeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions"`
}

func embeddingServer(t *testing.T, status int, vector []float64, got *embeddingRequest, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = fmt.Fprint(w, `{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": vector},
			},
			"usage": map[string]any{"prompt_tokens": 4, "total_tokens": 4},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testEmbedder(t *testing.T, baseURL string, dims int) *Embedder {
	t.Helper()
	e, err := NewEmbedder(config.EmbeddingConfig{
		OpenAIAPIKey: "sk-test",
		Dimensions:   dims,
		BaseURL:      baseURL + "/v1",
	})
	require.NoError(t, err)
	return e
}

func TestEmbed(t *testing.T) {
	var req embeddingRequest
	var calls atomic.Int32
	srv := embeddingServer(t, http.StatusOK, []float64{0.25, -0.5, 1}, &req, &calls)

	e := testEmbedder(t, srv.URL, 3)
	vec, err := e.Embed(context.Background(), "photosynthesis basics")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.25, -0.5, 1}, vec)
	assert.Equal(t, DefaultEmbeddingModel, req.Model)
	assert.Equal(t, "photosynthesis basics", req.Input)
	assert.Equal(t, 3, req.Dimensions)
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	var calls atomic.Int32
	srv := embeddingServer(t, http.StatusOK, []float64{0.1, 0.2}, nil, &calls)

	e := testEmbedder(t, srv.URL, 3)
	_, err := e.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEmbed_APIErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := embeddingServer(t, http.StatusTooManyRequests, nil, nil, &calls)

	e := testEmbedder(t, srv.URL, 3)
	_, err := e.Embed(context.Background(), "text")
	require.Error(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, generation.KindRateLimit, generation.ClassifyError(err).Kind)
}

func TestEmbed_EmptyText(t *testing.T) {
	e := testEmbedder(t, "http://127.0.0.1:0", 3)
	_, err := e.Embed(context.Background(), strings.Repeat(" ", 4))
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestNewEmbedder(t *testing.T) {
	_, err := NewEmbedder(config.EmbeddingConfig{})
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)

	e, err := NewEmbedder(config.EmbeddingConfig{OpenAIAPIKey: "sk", Model: "custom-model"})
	require.NoError(t, err)
	assert.Equal(t, "custom-model", e.ModelName())
	assert.Equal(t, DefaultEmbeddingDimension, e.Dimension())
}
