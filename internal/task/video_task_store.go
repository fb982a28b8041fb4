package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/store"
)

// TaskFactory builds the task that processes a video.
type TaskFactory interface {
	CreateTask(videoID string) (Task, error)
}

// VideoTaskStore implements TaskStore on top of the video table.
type VideoTaskStore struct {
	videos  store.VideoStore
	factory TaskFactory
	logger  *slog.Logger
}

var _ TaskStore = (*VideoTaskStore)(nil)

// NewVideoTaskStore creates a TaskStore that turns pending and processing
// videos into tasks built by factory.
func NewVideoTaskStore(videos store.VideoStore, factory TaskFactory, logger *slog.Logger) *VideoTaskStore {
	return &VideoTaskStore{
		videos:  videos,
		factory: factory,
		logger:  logger.With("component", "video_task_store"),
	}
}

// GetPendingTasks returns a task for every pending video.
func (s *VideoTaskStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	videos, err := s.videos.FindByProcessingStatus(ctx, domain.StatusPending, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending videos: %w", err)
	}
	return s.tasksFor(videos)
}

// GetProcessingTasks returns a task for every processing video, or only the
// ones processing longer than olderThan when it is non-zero.
func (s *VideoTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	var (
		videos []*domain.Video
		err    error
	)
	if olderThan > 0 {
		videos, err = s.videos.FindStaleProcessing(ctx, olderThan)
	} else {
		videos, err = s.videos.FindByProcessingStatus(ctx, domain.StatusProcessing, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find processing videos: %w", err)
	}
	return s.tasksFor(videos)
}

// ResetTask moves the video back to pending.
func (s *VideoTaskStore) ResetTask(ctx context.Context, taskID string, reason string) error {
	status := domain.StatusPending
	if err := s.videos.Update(ctx, taskID, store.VideoUpdate{ProcessingStatus: &status}); err != nil {
		return fmt.Errorf("failed to reset video %s: %w", taskID, err)
	}
	s.logger.Info("reset video to pending", "video_id", taskID, "reason", reason)
	return nil
}

func (s *VideoTaskStore) tasksFor(videos []*domain.Video) ([]Task, error) {
	tasks := make([]Task, 0, len(videos))
	for _, v := range videos {
		task, err := s.factory.CreateTask(v.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create task for video %s: %w", v.ID, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
