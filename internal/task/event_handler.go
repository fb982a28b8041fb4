package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-materials/internal/events"
)

// TaskSubmitter queues a task for execution. *TaskRunner implements it.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements the events.EventHandler interface
// to turn materials generation requests into queued tasks.
type TaskFactoryEventHandler struct {
	taskFactory TaskFactory
	taskRunner  TaskSubmitter
	logger      *slog.Logger
}

// NewTaskFactoryEventHandler creates a new event handler that uses the given task factory
// to create tasks, and submits them to the provided task runner.
func NewTaskFactoryEventHandler(
	taskFactory TaskFactory,
	taskRunner TaskSubmitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	return &TaskFactoryEventHandler{
		taskFactory: taskFactory,
		taskRunner:  taskRunner,
		logger:      logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent creates a MaterialsGenerationTask for the event's video and
// submits it. Events of other types are ignored.
func (h *TaskFactoryEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != events.TypeMaterialsGeneration {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	videoID, err := event.VideoID()
	if err != nil {
		h.logger.Error("invalid event payload", "error", err, "event_id", event.ID)
		return err
	}

	log := h.logger.With("video_id", videoID, "event_id", event.ID)

	task, err := h.taskFactory.CreateTask(videoID)
	if err != nil {
		log.Error("failed to create task", "error", err)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.taskRunner.Submit(ctx, task); err != nil {
		log.Error("failed to submit task", "error", err)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	log.Info("task created and submitted successfully", "task_type", task.Type())
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
