package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventEmitter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		event, err := NewMaterialsGenerationEvent("vid-1")
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.ErrorIs(t, err, ErrNoHandlers)
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event, err := NewMaterialsGenerationEvent("vid-1")
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.NoError(t, err)

		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Equal(t, event, handler1.LastEvent)
		assert.Equal(t, event, handler2.LastEvent)
	})

	t.Run("emit event with failing handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		firstErr := errors.New("first handler error")
		secondErr := errors.New("second handler error")
		failing1 := &MockEventHandler{HandlerError: firstErr}
		success := &MockEventHandler{}
		failing2 := &MockEventHandler{HandlerError: secondErr}
		emitter.RegisterHandler(failing1)
		emitter.RegisterHandler(success)
		emitter.RegisterHandler(failing2)

		event, err := NewMaterialsGenerationEvent("vid-1")
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.ErrorIs(t, err, firstErr)
		assert.ErrorIs(t, err, secondErr)

		// Every handler still receives the event
		assert.Equal(t, 1, failing1.HandledCount)
		assert.Equal(t, 1, success.HandledCount)
		assert.Equal(t, 1, failing2.HandledCount)
	})
}
