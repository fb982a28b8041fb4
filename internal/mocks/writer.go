package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/materials"
)

// MockMaterialsWriter records Write calls and optionally delegates to WriteFn.
type MockMaterialsWriter struct {
	WriteFn func(ctx context.Context, videoID string, bundle *domain.Materials, opts materials.WriteOptions) error

	mu    sync.Mutex
	calls []WriteCall
}

// WriteCall captures the arguments of one Write call.
type WriteCall struct {
	VideoID string
	Kinds   []domain.ArtifactKind
	Options materials.WriteOptions
}

// Write records the call and returns WriteFn's result, or nil.
func (m *MockMaterialsWriter) Write(
	ctx context.Context,
	videoID string,
	bundle *domain.Materials,
	opts materials.WriteOptions,
) error {
	m.mu.Lock()
	m.calls = append(m.calls, WriteCall{VideoID: videoID, Kinds: bundle.Kinds(), Options: opts})
	m.mu.Unlock()

	if m.WriteFn != nil {
		return m.WriteFn(ctx, videoID, bundle, opts)
	}
	return nil
}

// Calls returns a copy of the recorded calls.
func (m *MockMaterialsWriter) Calls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WriteCall(nil), m.calls...)
}
