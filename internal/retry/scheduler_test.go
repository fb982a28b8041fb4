package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runnerFunc adapts a function to Runner.
type runnerFunc func(ctx context.Context) (*Summary, error)

func (f runnerFunc) Run(ctx context.Context) (*Summary, error) { return f(ctx) }

func TestNewScheduler(t *testing.T) {
	noop := runnerFunc(func(ctx context.Context) (*Summary, error) { return &Summary{}, nil })

	s, err := NewScheduler("", noop, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, s.schedule)

	_, err = NewScheduler("not a cron spec", noop, discardLogger())
	assert.ErrorContains(t, err, "invalid retry schedule")

	_, err = NewScheduler(DefaultSchedule, nil, discardLogger())
	assert.Error(t, err)
}

func TestScheduler_RunOnceKeepsLastSummary(t *testing.T) {
	calls := 0
	s, err := NewScheduler(DefaultSchedule, runnerFunc(func(ctx context.Context) (*Summary, error) {
		calls++
		switch calls {
		case 1:
			return &Summary{VideosFound: 4}, nil
		case 2:
			return nil, errors.New("scan failed")
		default:
			return nil, ErrRunInProgress
		}
	}), discardLogger())
	require.NoError(t, err)

	assert.Nil(t, s.LastSummary())

	s.runOnce()
	require.NotNil(t, s.LastSummary())
	assert.Equal(t, 4, s.LastSummary().VideosFound)

	// Failed and skipped passes leave the last summary in place
	s.runOnce()
	s.runOnce()
	assert.Equal(t, 4, s.LastSummary().VideosFound)
}

func TestScheduler_StartStop(t *testing.T) {
	var runs atomic.Int32
	var sawCancel atomic.Bool
	started := make(chan struct{}, 1)

	s, err := NewScheduler("@every 10ms", runnerFunc(func(ctx context.Context) (*Summary, error) {
		runs.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		sawCancel.Store(true)
		return &Summary{}, nil
	}), discardLogger())
	require.NoError(t, err)

	s.Start()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled pass did not start")
	}

	// Ticks while the first pass is blocked are skipped
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())

	select {
	case <-s.Stop().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.True(t, sawCancel.Load())
}
