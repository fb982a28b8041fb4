package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/store"
)

type materialsKey struct {
	videoID string
	kind    domain.ArtifactKind
}

// materialsData maps a (video, kind) pair to the artifacts inserted for it.
// Each InsertMany appends, so a second insert without a delete doubles the
// stored items just as it would in SQL.
type materialsData map[materialsKey][]domain.Artifact

func (d materialsData) clone() materialsData {
	c := make(materialsData, len(d))
	for k, v := range d {
		c[k] = append([]domain.Artifact(nil), v...)
	}
	return c
}

// MaterialsStore is a map-backed store.MaterialsStore with all-or-nothing
// InTx semantics.
type MaterialsStore struct {
	mu   *sync.Mutex
	data *materialsData

	// bound is true for the store handed to an InTx callback. Its methods
	// run under the lock already held by InTx.
	bound bool

	// FailInsert, when set, is consulted before each InsertMany and its
	// error returned without storing anything.
	FailInsert func(videoID string, kind domain.ArtifactKind) error
}

var _ store.MaterialsStore = (*MaterialsStore)(nil)

// NewMaterialsStore creates an empty MaterialsStore.
func NewMaterialsStore() *MaterialsStore {
	data := make(materialsData)
	return &MaterialsStore{mu: &sync.Mutex{}, data: &data}
}

func (s *MaterialsStore) lock() func() {
	if s.bound {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// DeleteAllForJob implements store.MaterialsStore.
func (s *MaterialsStore) DeleteAllForJob(ctx context.Context, kind domain.ArtifactKind, videoID string) error {
	if !isStoredKind(kind) {
		return fmt.Errorf("%w: %w: %s", store.ErrInvalidEntity, domain.ErrInvalidArtifactKind, kind)
	}
	defer s.lock()()

	delete(*s.data, materialsKey{videoID: videoID, kind: kind})
	return nil
}

// InsertMany implements store.MaterialsStore.
func (s *MaterialsStore) InsertMany(ctx context.Context, videoID string, artifact domain.Artifact) error {
	if artifact == nil || !isStoredKind(artifact.Kind()) {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidArtifactKind)
	}
	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if s.FailInsert != nil {
		if err := s.FailInsert(videoID, artifact.Kind()); err != nil {
			return err
		}
	}
	defer s.lock()()

	key := materialsKey{videoID: videoID, kind: artifact.Kind()}
	(*s.data)[key] = append((*s.data)[key], artifact)
	return nil
}

// CountForJob implements store.MaterialsStore.
func (s *MaterialsStore) CountForJob(ctx context.Context, kind domain.ArtifactKind, videoID string) (int, error) {
	defer s.lock()()

	n := 0
	for _, a := range (*s.data)[materialsKey{videoID: videoID, kind: kind}] {
		n += a.Len()
	}
	return n, nil
}

// Artifacts returns the artifacts stored for the video and kind, in insert order.
func (s *MaterialsStore) Artifacts(videoID string, kind domain.ArtifactKind) []domain.Artifact {
	defer s.lock()()
	return append([]domain.Artifact(nil), (*s.data)[materialsKey{videoID: videoID, kind: kind}]...)
}

// InTx implements store.MaterialsStore. fn works on a private copy of the
// data that replaces the shared data only when fn returns nil. Transactions
// are serialized.
func (s *MaterialsStore) InTx(ctx context.Context, fn func(ctx context.Context, tx store.MaterialsStore) error) error {
	if s.bound {
		return fn(ctx, s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.data.clone()
	tx := &MaterialsStore{
		mu:         s.mu,
		data:       &working,
		bound:      true,
		FailInsert: s.FailInsert,
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	*s.data = working
	return nil
}

// WithTx returns the store itself; use InTx for transactional behaviour.
func (s *MaterialsStore) WithTx(_ *sql.Tx) store.MaterialsStore {
	return s
}

func isStoredKind(kind domain.ArtifactKind) bool {
	return kind.IsValid() && kind != domain.ArtifactMetadata
}
