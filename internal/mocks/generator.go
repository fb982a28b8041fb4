package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/generation"
)

// MockGenerator implements generation.Generator for testing
type MockGenerator struct {
	// GenerateFn allows test cases to mock the Generate behavior
	GenerateFn func(ctx context.Context, transcript domain.Transcript, kinds []domain.ArtifactKind) (*generation.Result, error)

	// Default response values
	Result *generation.Result
	Err    error

	// Call tracking for verification
	GenerateCalls struct {
		// mu protects the call tracking state for concurrent test cases
		mu sync.Mutex

		// Count tracks how many times Generate was called
		Count int

		// Kinds contains the kinds argument of every call, in call order
		Kinds [][]domain.ArtifactKind
	}
}

var _ generation.Generator = (*MockGenerator)(nil)

// Generate implements the generation.Generator interface
func (m *MockGenerator) Generate(
	ctx context.Context,
	transcript domain.Transcript,
	kinds []domain.ArtifactKind,
) (*generation.Result, error) {
	m.GenerateCalls.mu.Lock()
	m.GenerateCalls.Count++
	m.GenerateCalls.Kinds = append(m.GenerateCalls.Kinds, append([]domain.ArtifactKind(nil), kinds...))
	m.GenerateCalls.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, transcript, kinds)
	}

	return m.Result, m.Err
}

// CallCount returns how many times Generate was called
func (m *MockGenerator) CallCount() int {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()
	return m.GenerateCalls.Count
}

// RequestedKinds returns every kind requested across all calls
func (m *MockGenerator) RequestedKinds() []domain.ArtifactKind {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()
	var all []domain.ArtifactKind
	for _, ks := range m.GenerateCalls.Kinds {
		all = append(all, ks...)
	}
	return all
}

// Reset resets the call tracking state
func (m *MockGenerator) Reset() {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()

	m.GenerateCalls.Count = 0
	m.GenerateCalls.Kinds = nil
}

// NewMockGeneratorWithError creates a MockGenerator that returns the specified error
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{Err: err}
}

// NewMockGeneratorWithMaterials creates a MockGenerator whose every call
// returns only the requested kinds taken from the given bundle. A call with
// no kinds receives the whole bundle.
func NewMockGeneratorWithMaterials(bundle *domain.Materials) *MockGenerator {
	return &MockGenerator{
		GenerateFn: func(_ context.Context, _ domain.Transcript, kinds []domain.ArtifactKind) (*generation.Result, error) {
			return &generation.Result{
				Materials: SelectKinds(bundle, kinds),
				Usage:     generation.Usage{PromptTokens: 100, CompletionTokens: 50},
			}, nil
		},
	}
}

// SelectKinds copies the requested kinds out of bundle. Empty kinds selects
// everything.
func SelectKinds(bundle *domain.Materials, kinds []domain.ArtifactKind) *domain.Materials {
	out := domain.NewMaterials()
	for _, k := range domain.NormalizeKinds(kinds) {
		if a, ok := bundle.Get(k); ok {
			out.Set(a)
		}
	}
	return out
}

// SampleMaterials returns a valid bundle holding every artifact kind
func SampleMaterials() *domain.Materials {
	return domain.NewMaterials(
		&domain.Metadata{
			Title:    "Graph Traversal",
			Category: "Computer Science",
			Tags:     []string{"graphs", "bfs", "dfs"},
			Summary:  "An introduction to breadth-first and depth-first search.",
			Chapters: []domain.Chapter{{Title: "Intro", StartSeconds: 0}},
		},
		&domain.FlashcardSet{Cards: []domain.Flashcard{
			{Front: "What does BFS use?", Back: "A queue"},
			{Front: "What does DFS use?", Back: "A stack"},
		}},
		&domain.QuizSet{Questions: []domain.QuizQuestion{
			{Question: "Which finds shortest paths in unweighted graphs?", Options: []string{"BFS", "DFS"}, CorrectIndex: 0},
		}},
		&domain.PrerequisiteSet{Items: []domain.Prerequisite{{Topic: "Queues"}}},
		&domain.CaseStudy{Title: "Route planning", Scenario: "A delivery app must find the fewest hops."},
		&domain.ConceptMap{
			Nodes: []domain.ConceptNode{{ID: "bfs", Label: "BFS"}, {ID: "queue", Label: "Queue"}},
			Edges: []domain.ConceptEdge{{From: "bfs", To: "queue", Relation: "uses"}},
		},
	)
}

// MockEmbedder implements generation.Embedder for testing
type MockEmbedder struct {
	EmbedFn func(ctx context.Context, text string) ([]float32, error)

	mu    sync.Mutex
	calls int
}

var _ generation.Embedder = (*MockEmbedder)(nil)

// Embed implements the generation.Embedder interface
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.EmbedFn != nil {
		return m.EmbedFn(ctx, text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// Calls returns how many times Embed was called
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
