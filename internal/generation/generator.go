package generation

import (
	"context"

	"github.com/phrazzld/scry-materials/internal/domain"
)

// Usage records token consumption reported for one or more provider calls.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}

// Total returns prompt plus completion tokens.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// Result is the output of a single provider call.
type Result struct {
	Materials *domain.Materials
	Usage     Usage
}

// Generator defines the interface for generating learning materials from a
// transcript. This interface serves as a boundary between the application
// core and external AI/LLM services, following the hexagonal architecture
// pattern.
type Generator interface {
	// Generate issues exactly one provider call producing the given artifact
	// kinds, or the full bundle when kinds is empty. Implementations must not
	// retry internally. The error message is the only input to Classify, so
	// provider errors should be returned with their text intact.
	Generate(ctx context.Context, transcript domain.Transcript, kinds []domain.ArtifactKind) (*Result, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TokenCounter estimates how many tokens a piece of text will consume.
type TokenCounter interface {
	CountTokens(text string) int
}
