package task

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var mockTaskSeq atomic.Int64

// mockTask implements the Task interface for testing
type mockTask struct {
	id       string
	taskType string
	payload  []byte
	status   TaskStatus
	execFn   func(ctx context.Context) error
}

func (m *mockTask) ID() string { return m.id }

func (m *mockTask) Type() string { return m.taskType }

func (m *mockTask) Payload() []byte { return m.payload }

func (m *mockTask) Status() TaskStatus { return m.status }

func (m *mockTask) Execute(ctx context.Context) error {
	if m.execFn != nil {
		return m.execFn(ctx)
	}
	return nil
}

func newMockTask() *mockTask {
	return newMockTaskWithID(fmt.Sprintf("video-%d", mockTaskSeq.Add(1)))
}

func newMockTaskWithID(id string) *mockTask {
	return &mockTask{
		id:       id,
		taskType: "mock",
		payload:  []byte(`{"video_id":"` + id + `"}`),
		status:   TaskStatusPending,
	}
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// mockTaskStore is a TaskStore with function fields and call recording.
type mockTaskStore struct {
	mu sync.Mutex

	GetPendingFn    func(ctx context.Context) ([]Task, error)
	GetProcessingFn func(ctx context.Context, olderThan time.Duration) ([]Task, error)
	ResetFn         func(ctx context.Context, taskID string, reason string) error

	resets     []string
	olderThans []time.Duration
}

func (s *mockTaskStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	if s.GetPendingFn != nil {
		return s.GetPendingFn(ctx)
	}
	return nil, nil
}

func (s *mockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	s.mu.Lock()
	s.olderThans = append(s.olderThans, olderThan)
	s.mu.Unlock()
	if s.GetProcessingFn != nil {
		return s.GetProcessingFn(ctx, olderThan)
	}
	return nil, nil
}

func (s *mockTaskStore) ResetTask(ctx context.Context, taskID string, reason string) error {
	s.mu.Lock()
	s.resets = append(s.resets, taskID)
	s.mu.Unlock()
	if s.ResetFn != nil {
		return s.ResetFn(ctx, taskID, reason)
	}
	return nil
}

func (s *mockTaskStore) Resets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.resets...)
}
