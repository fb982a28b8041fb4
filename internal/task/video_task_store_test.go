package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/platform/memory"
	"github.com/phrazzld/scry-materials/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskIDs(tasks []Task) []string {
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID()
	}
	return ids
}

func TestVideoTaskStore(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	pending := pendingVideo(t, "pending-1")
	pending.UpdatedAt = base

	fresh := pendingVideo(t, "processing-fresh")
	fresh.ProcessingStatus = domain.StatusProcessing
	fresh.UpdatedAt = base.Add(55 * time.Minute)

	stale := pendingVideo(t, "processing-stale")
	stale.ProcessingStatus = domain.StatusProcessing
	stale.UpdatedAt = base

	videos := memory.NewVideoStore(pending, fresh, stale)
	videos.SetClock(func() time.Time { return base.Add(time.Hour) })

	s := NewVideoTaskStore(videos, &mockTaskFactory{}, setupTestLogger())

	t.Run("pending", func(t *testing.T) {
		tasks, err := s.GetPendingTasks(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"pending-1"}, taskIDs(tasks))
	})

	t.Run("all processing", func(t *testing.T) {
		tasks, err := s.GetProcessingTasks(ctx, 0)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"processing-fresh", "processing-stale"}, taskIDs(tasks))
	})

	t.Run("stale processing", func(t *testing.T) {
		tasks, err := s.GetProcessingTasks(ctx, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, []string{"processing-stale"}, taskIDs(tasks))
	})

	t.Run("reset", func(t *testing.T) {
		require.NoError(t, s.ResetTask(ctx, "processing-stale", "stuck"))

		got, err := videos.GetByID(ctx, "processing-stale")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, got.ProcessingStatus)

		err = s.ResetTask(ctx, "missing", "stuck")
		assert.ErrorIs(t, err, store.ErrVideoNotFound)
	})

	t.Run("factory error", func(t *testing.T) {
		failing := NewVideoTaskStore(videos, &mockTaskFactory{
			CreateTaskFn: func(videoID string) (Task, error) {
				return nil, errors.New("boom")
			},
		}, setupTestLogger())

		_, err := failing.GetPendingTasks(ctx)
		assert.ErrorContains(t, err, "failed to create task")
	})
}
