package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/processor"
	"github.com/phrazzld/scry-materials/internal/store"
)

// Common errors
var (
	ErrNilVideoStore = errors.New("video store cannot be nil")
	ErrNilProcessor  = errors.New("processor cannot be nil")
	ErrNilLogger     = errors.New("logger cannot be nil")
	ErrEmptyVideoID  = errors.New("video ID cannot be empty")
)

// InitialProcessor runs first-pass generation for one video.
type InitialProcessor interface {
	ProcessInitial(ctx context.Context, video *domain.Video) (processor.Outcome, error)
}

// videoPayload represents the serialized data stored in the task
type videoPayload struct {
	VideoID string `json:"video_id"`
}

// MaterialsGenerationTask implements the Task interface for generating
// the first set of materials for a pending video.
type MaterialsGenerationTask struct {
	videoID   string
	videos    store.VideoStore
	processor InitialProcessor
	logger    *slog.Logger

	mu     sync.Mutex
	status TaskStatus
}

// NewMaterialsGenerationTask creates a new materials generation task
func NewMaterialsGenerationTask(
	videoID string,
	videos store.VideoStore,
	processor InitialProcessor,
	logger *slog.Logger,
) (*MaterialsGenerationTask, error) {
	if videos == nil {
		return nil, ErrNilVideoStore
	}
	if processor == nil {
		return nil, ErrNilProcessor
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if videoID == "" {
		return nil, ErrEmptyVideoID
	}

	return &MaterialsGenerationTask{
		videoID:   videoID,
		videos:    videos,
		processor: processor,
		logger:    logger.With("task_type", TaskTypeMaterialsGeneration, "video_id", videoID),
		status:    TaskStatusPending,
	}, nil
}

// ID returns the ID of the video the task generates materials for
func (t *MaterialsGenerationTask) ID() string {
	return t.videoID
}

// Type returns the task type identifier
func (t *MaterialsGenerationTask) Type() string {
	return TaskTypeMaterialsGeneration
}

// Payload returns the task data as a byte slice
func (t *MaterialsGenerationTask) Payload() []byte {
	data, err := json.Marshal(videoPayload{VideoID: t.videoID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *MaterialsGenerationTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *MaterialsGenerationTask) setStatus(status TaskStatus) {
	t.mu.Lock()
	t.status = status
	t.mu.Unlock()
}

// Execute loads the video and hands it to the processor. A video that has
// already moved past pending or processing is skipped, which makes a
// duplicate submission harmless.
func (t *MaterialsGenerationTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)
	t.logger.Info("starting materials generation task")

	if err := ctx.Err(); err != nil {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	video, err := t.videos.GetByID(ctx, t.videoID)
	if err != nil {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("failed to retrieve video: %w", err)
	}

	if video.ProcessingStatus != domain.StatusPending && video.ProcessingStatus != domain.StatusProcessing {
		t.logger.Info("video already processed, skipping",
			"processing_status", video.ProcessingStatus)
		t.setStatus(TaskStatusCompleted)
		return nil
	}

	outcome, err := t.processor.ProcessInitial(ctx, video)
	if err != nil {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("failed to process video: %w", err)
	}

	t.setStatus(TaskStatusCompleted)
	t.logger.Info("materials generation task completed", "outcome", outcome)
	return nil
}

// MaterialsGenerationTaskFactory creates MaterialsGenerationTask instances
type MaterialsGenerationTaskFactory struct {
	videos    store.VideoStore
	processor InitialProcessor
	logger    *slog.Logger
}

// NewMaterialsGenerationTaskFactory creates a new factory for MaterialsGenerationTasks
func NewMaterialsGenerationTaskFactory(
	videos store.VideoStore,
	processor InitialProcessor,
	logger *slog.Logger,
) *MaterialsGenerationTaskFactory {
	return &MaterialsGenerationTaskFactory{
		videos:    videos,
		processor: processor,
		logger:    logger,
	}
}

// CreateTask creates a new MaterialsGenerationTask for the specified video
func (f *MaterialsGenerationTaskFactory) CreateTask(videoID string) (Task, error) {
	task, err := NewMaterialsGenerationTask(videoID, f.videos, f.processor, f.logger)
	if err != nil {
		return nil, err
	}
	return task, nil
}
