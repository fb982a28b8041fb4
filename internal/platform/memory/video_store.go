package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/store"
)

// VideoStore is a map-backed store.VideoStore. Videos are copied on the way
// in and out so callers never share state with the store.
type VideoStore struct {
	mu     sync.RWMutex
	videos map[string]*domain.Video
	now    func() time.Time

	// FailUpdate, when set, is consulted before every Update and its
	// error returned without touching the video.
	FailUpdate func(id string, update store.VideoUpdate) error

	updates int
}

var _ store.VideoStore = (*VideoStore)(nil)

// NewVideoStore creates an empty VideoStore holding copies of the given videos.
func NewVideoStore(videos ...*domain.Video) *VideoStore {
	s := &VideoStore{
		videos: make(map[string]*domain.Video, len(videos)),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, v := range videos {
		s.videos[v.ID] = cloneVideo(v)
	}
	return s
}

// SetClock replaces the clock used for updated_at bookkeeping.
func (s *VideoStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// UpdateCount returns how many updates have been applied.
func (s *VideoStore) UpdateCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates
}

// Create implements store.VideoStore.
func (s *VideoStore) Create(ctx context.Context, video *domain.Video) error {
	if err := video.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[video.ID]; ok {
		return store.ErrVideoExists
	}
	s.videos[video.ID] = cloneVideo(video)
	return nil
}

// GetByID implements store.VideoStore.
func (s *VideoStore) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.videos[id]
	if !ok {
		return nil, store.ErrVideoNotFound
	}
	return cloneVideo(v), nil
}

// FindByProcessingStatus implements store.VideoStore.
func (s *VideoStore) FindByProcessingStatus(
	ctx context.Context,
	status domain.ProcessingStatus,
	limit int,
) ([]*domain.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(func(v *domain.Video) bool { return v.ProcessingStatus == status }, limit), nil
}

// FindStaleProcessing implements store.VideoStore.
func (s *VideoStore) FindStaleProcessing(ctx context.Context, olderThan time.Duration) ([]*domain.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-olderThan)
	return s.collect(func(v *domain.Video) bool {
		return v.ProcessingStatus == domain.StatusProcessing && v.UpdatedAt.Before(cutoff)
	}, 0), nil
}

// collect must be called with at least a read lock held.
func (s *VideoStore) collect(match func(*domain.Video) bool, limit int) []*domain.Video {
	out := make([]*domain.Video, 0)
	for _, v := range s.videos {
		if match(v) {
			out = append(out, cloneVideo(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Update implements store.VideoStore. The updated video must still pass
// domain validation, mirroring the check constraints of the SQL schema.
func (s *VideoStore) Update(ctx context.Context, id string, update store.VideoUpdate) error {
	if update.IsEmpty() {
		return fmt.Errorf("%w: no fields to update", store.ErrUpdateFailed)
	}
	if s.FailUpdate != nil {
		if err := s.FailUpdate(id, update); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.videos[id]
	if !ok {
		return store.ErrVideoNotFound
	}

	next := cloneVideo(current)
	update.Apply(next)
	next.UpdatedAt = s.now()
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.videos[id] = next
	s.updates++
	return nil
}

// WithTx returns the store itself; the map is not transactional.
func (s *VideoStore) WithTx(_ *sql.Tx) store.VideoStore {
	return s
}

func cloneVideo(v *domain.Video) *domain.Video {
	c := *v
	c.Transcript = append(domain.Transcript(nil), v.Transcript...)
	c.IncompleteMaterials = append([]domain.ArtifactKind(nil), v.IncompleteMaterials...)
	c.Tags = append([]string(nil), v.Tags...)
	c.Chapters = append([]domain.Chapter(nil), v.Chapters...)
	c.Embedding = append([]float32(nil), v.Embedding...)
	if v.ErrorType != nil {
		s := *v.ErrorType
		c.ErrorType = &s
	}
	if v.ErrorMessage != nil {
		s := *v.ErrorMessage
		c.ErrorMessage = &s
	}
	if v.ProcessedAt != nil {
		t := *v.ProcessedAt
		c.ProcessedAt = &t
	}
	return &c
}
