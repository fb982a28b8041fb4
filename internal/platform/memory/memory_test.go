package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/platform/memory"
	"github.com/phrazzld/scry-materials/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVideo(t *testing.T, id string) *domain.Video {
	t.Helper()
	v, err := domain.NewVideo(id, uuid.New(), domain.Transcript{{Text: "hello", Start: 0, Duration: 2}})
	require.NoError(t, err)
	return v
}

func ptr[T any](v T) *T { return &v }

func TestVideoStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := memory.NewVideoStore()
	v := newVideo(t, "vid-1")

	require.NoError(t, s.Create(ctx, v))
	assert.ErrorIs(t, s.Create(ctx, v), store.ErrVideoExists)

	got, err := s.GetByID(ctx, "vid-1")
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)

	got.IncompleteMaterials = nil
	again, err := s.GetByID(ctx, "vid-1")
	require.NoError(t, err)
	assert.Len(t, again.IncompleteMaterials, len(domain.AllArtifactKinds), "returned copies are detached")

	_, err = s.GetByID(ctx, "missing")
	assert.True(t, store.IsNotFoundError(err))
}

func TestVideoStore_Update(t *testing.T) {
	ctx := context.Background()
	s := memory.NewVideoStore(newVideo(t, "vid-1"))

	t.Run("empty update", func(t *testing.T) {
		assert.ErrorIs(t, s.Update(ctx, "vid-1", store.VideoUpdate{}), store.ErrUpdateFailed)
	})

	t.Run("missing video", func(t *testing.T) {
		err := s.Update(ctx, "nope", store.VideoUpdate{ErrorType: ptr("timeout")})
		assert.ErrorIs(t, err, store.ErrVideoNotFound)
	})

	t.Run("inconsistent status rejected", func(t *testing.T) {
		err := s.Update(ctx, "vid-1", store.VideoUpdate{MaterialsStatus: ptr(domain.MaterialsComplete)})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		got, _ := s.GetByID(ctx, "vid-1")
		assert.Equal(t, domain.MaterialsIncomplete, got.MaterialsStatus)
	})

	t.Run("completion", func(t *testing.T) {
		now := time.Now().UTC()
		err := s.Update(ctx, "vid-1", store.VideoUpdate{
			ProcessingStatus:    ptr(domain.StatusCompleted),
			MaterialsStatus:     ptr(domain.MaterialsComplete),
			IncompleteMaterials: &[]domain.ArtifactKind{},
			ClearError:          true,
			ProcessedAt:         &now,
			Metadata:            &domain.Metadata{Title: "Intro", Category: "science"},
		})
		require.NoError(t, err)

		got, err := s.GetByID(ctx, "vid-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, got.ProcessingStatus)
		assert.Empty(t, got.IncompleteMaterials)
		assert.Nil(t, got.ErrorType)
		assert.Equal(t, "Intro", got.Title)
	})

	t.Run("injected failure", func(t *testing.T) {
		boom := errors.New("connection refused")
		s.FailUpdate = func(string, store.VideoUpdate) error { return boom }
		defer func() { s.FailUpdate = nil }()
		assert.ErrorIs(t, s.Update(ctx, "vid-1", store.VideoUpdate{ErrorType: ptr("x")}), boom)
	})
}

func TestVideoStore_Queries(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	a := newVideo(t, "a")
	a.ProcessingStatus = domain.StatusCompletedWithWarning
	a.UpdatedAt = base.Add(2 * time.Minute)
	b := newVideo(t, "b")
	b.ProcessingStatus = domain.StatusCompletedWithWarning
	b.UpdatedAt = base.Add(time.Minute)
	c := newVideo(t, "c")
	c.ProcessingStatus = domain.StatusProcessing
	c.UpdatedAt = base
	d := newVideo(t, "d")
	d.ProcessingStatus = domain.StatusProcessing
	d.UpdatedAt = base.Add(55 * time.Minute)

	s := memory.NewVideoStore(a, b, c, d)
	s.SetClock(func() time.Time { return base.Add(time.Hour) })

	got, err := s.FindByProcessingStatus(ctx, domain.StatusCompletedWithWarning, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID, "oldest update first")

	got, err = s.FindByProcessingStatus(ctx, domain.StatusCompletedWithWarning, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	stale, err := s.FindStaleProcessing(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "c", stale[0].ID)
}

func TestMaterialsStore_InsertDeleteCount(t *testing.T) {
	ctx := context.Background()
	s := memory.NewMaterialsStore()
	cards := &domain.FlashcardSet{Cards: []domain.Flashcard{
		{Front: "Q1", Back: "A1"},
		{Front: "Q2", Back: "A2"},
	}}

	require.NoError(t, s.InsertMany(ctx, "vid", cards))
	require.NoError(t, s.InsertMany(ctx, "vid", cards))
	n, err := s.CountForJob(ctx, domain.ArtifactFlashcards, "vid")
	require.NoError(t, err)
	assert.Equal(t, 4, n, "inserts append")

	require.NoError(t, s.DeleteAllForJob(ctx, domain.ArtifactFlashcards, "vid"))
	require.NoError(t, s.DeleteAllForJob(ctx, domain.ArtifactFlashcards, "vid"), "deleting nothing is fine")
	n, _ = s.CountForJob(ctx, domain.ArtifactFlashcards, "vid")
	assert.Zero(t, n)

	assert.ErrorIs(t, s.InsertMany(ctx, "vid", &domain.Metadata{Title: "t"}), store.ErrInvalidEntity)
	assert.ErrorIs(t, s.InsertMany(ctx, "vid", &domain.FlashcardSet{Cards: []domain.Flashcard{{}}}), store.ErrInvalidEntity)
}

func TestMaterialsStore_InTxRollback(t *testing.T) {
	ctx := context.Background()
	s := memory.NewMaterialsStore()
	original := &domain.FlashcardSet{Cards: []domain.Flashcard{{Front: "old", Back: "old"}}}
	require.NoError(t, s.InsertMany(ctx, "vid", original))

	boom := errors.New("disk full")
	s.FailInsert = func(string, domain.ArtifactKind) error { return boom }

	err := s.InTx(ctx, func(ctx context.Context, tx store.MaterialsStore) error {
		if err := tx.DeleteAllForJob(ctx, domain.ArtifactFlashcards, "vid"); err != nil {
			return err
		}
		return tx.InsertMany(ctx, "vid", &domain.FlashcardSet{Cards: []domain.Flashcard{{Front: "new", Back: "new"}}})
	})
	assert.ErrorIs(t, err, boom)

	stored := s.Artifacts("vid", domain.ArtifactFlashcards)
	require.Len(t, stored, 1)
	assert.Equal(t, original, stored[0], "previous set untouched after rollback")
}

func TestMaterialsStore_InTxCommit(t *testing.T) {
	ctx := context.Background()
	s := memory.NewMaterialsStore()

	err := s.InTx(ctx, func(ctx context.Context, tx store.MaterialsStore) error {
		return tx.InTx(ctx, func(ctx context.Context, inner store.MaterialsStore) error {
			return inner.InsertMany(ctx, "vid", &domain.CaseStudy{Title: "T", Scenario: "S"})
		})
	})
	require.NoError(t, err)

	n, err := s.CountForJob(ctx, domain.ArtifactCaseStudy, "vid")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLeaser(t *testing.T) {
	ctx := context.Background()
	l := memory.NewLeaser()

	lease, err := l.Acquire(ctx, "vid", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "vid", time.Minute)
	assert.ErrorIs(t, err, store.ErrLeaseHeld)

	require.NoError(t, lease.Release(ctx))
	_, err = l.Acquire(ctx, "vid", time.Minute)
	assert.NoError(t, err)

	l.Hold("other", time.Minute)
	_, err = l.Acquire(ctx, "other", time.Minute)
	assert.ErrorIs(t, err, store.ErrLeaseHeld)
}
