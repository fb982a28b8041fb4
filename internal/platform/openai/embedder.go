// Package openai adapts the OpenAI embeddings API to generation.Embedder.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/phrazzld/scry-materials/internal/config"
	"github.com/phrazzld/scry-materials/internal/generation"
)

const (
	// DefaultEmbeddingModel is used when no model is configured.
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultEmbeddingDimension matches the videos.embedding column.
	DefaultEmbeddingDimension = 1536
)

var (
	// ErrAPIKeyNotSet is returned when no API key is configured.
	ErrAPIKeyNotSet = errors.New("openai API key not set")

	// ErrEmptyText is returned when there is nothing to embed.
	ErrEmptyText = errors.New("no text provided for embedding")

	// ErrDimensionMismatch is returned when the API returns a vector of an
	// unexpected length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder turns text into vectors with the OpenAI embeddings API.
type Embedder struct {
	client    openai.Client
	model     string
	dimension int
}

var _ generation.Embedder = (*Embedder)(nil)

// NewEmbedder creates an Embedder from cfg. The client never retries on its
// own; a failed embedding is simply left for the next pass.
func NewEmbedder(cfg config.EmbeddingConfig, opts ...option.RequestOption) (*Embedder, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dimension := cfg.Dimensions
	if dimension == 0 {
		dimension = DefaultEmbeddingDimension
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &Embedder{
		client:    openai.NewClient(reqOpts...),
		model:     model,
		dimension: dimension,
	}, nil
}

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Dimensions: openai.Int(int64(e.dimension)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embeddings generated")
	}

	data := resp.Data[0].Embedding
	if len(data) != e.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(data), e.dimension)
	}

	vector := make([]float32, len(data))
	for i, v := range data {
		vector[i] = float32(v)
	}
	return vector, nil
}

// ModelName returns the embedding model name.
func (e *Embedder) ModelName() string {
	return e.model
}

// Dimension returns the vector length.
func (e *Embedder) Dimension() int {
	return e.dimension
}
