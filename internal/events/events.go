package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TypeMaterialsGeneration requests first-pass materials generation for a video.
const TypeMaterialsGeneration = "materials_generation"

// ErrMissingVideoID is returned when a video event carries no video ID.
var ErrMissingVideoID = errors.New("event payload has no video_id")

// TaskRequestEvent represents a request to create a background task.
// It contains the necessary information for task creation without
// direct dependencies on the task package.
type TaskRequestEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates the task type that should be created
	Type string `json:"type"`

	// Payload contains the task-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// VideoPayload is the payload of events about a single video.
type VideoPayload struct {
	VideoID string `json:"video_id"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *TaskRequestEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// VideoID decodes a VideoPayload and returns its video ID.
func (e *TaskRequestEvent) VideoID() (string, error) {
	var p VideoPayload
	if err := e.UnmarshalPayload(&p); err != nil {
		return "", fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if p.VideoID == "" {
		return "", ErrMissingVideoID
	}
	return p.VideoID, nil
}

// NewTaskRequestEvent creates a new TaskRequestEvent with the specified type and payload.
func NewTaskRequestEvent(eventType string, payload any) (*TaskRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewMaterialsGenerationEvent requests first-pass generation for videoID.
func NewMaterialsGenerationEvent(videoID string) (*TaskRequestEvent, error) {
	if videoID == "" {
		return nil, ErrMissingVideoID
	}
	return NewTaskRequestEvent(TypeMaterialsGeneration, VideoPayload{VideoID: videoID})
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *TaskRequestEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
