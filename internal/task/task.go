package task

import (
	"context"
	"time"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypeMaterialsGeneration generates the first set of materials for a pending video.
	TaskTypeMaterialsGeneration = "materials_generation"

	// TaskTypeMaterialsRetry re-runs generation for a completed_with_warning video.
	TaskTypeMaterialsRetry = "materials_retry"
)

// Task represents a unit of background work to be processed
// Version: 2.0
type Task interface {
	// ID returns the ID of the video the task works on. At most one task
	// per video is queued at a time.
	ID() string

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
// Version: 1.0
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
// allowing services to enqueue tasks for processing
// Version: 1.0
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}

// TaskStore finds the durable work the runner has to pick up after a restart
// or a crash.
// Version: 2.0
type TaskStore interface {
	// GetPendingTasks returns a task for every pending video.
	GetPendingTasks(ctx context.Context) ([]Task, error)

	// GetProcessingTasks returns tasks for videos in the processing state.
	// If olderThan is non-zero, only videos that have been processing longer
	// than that are returned.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)

	// ResetTask moves the task's video back to pending.
	ResetTask(ctx context.Context, taskID string, reason string) error
}
