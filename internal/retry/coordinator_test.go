package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/generation"
	"github.com/phrazzld/scry-materials/internal/materials"
	"github.com/phrazzld/scry-materials/internal/mocks"
	"github.com/phrazzld/scry-materials/internal/platform/memory"
	"github.com/phrazzld/scry-materials/internal/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProcessor implements VideoProcessor with a function field and
// tracks peak concurrency.
type fakeProcessor struct {
	ProcessFn func(ctx context.Context, video *domain.Video) (processor.Outcome, error)

	mu        sync.Mutex
	calls     []string
	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeProcessor) Process(ctx context.Context, video *domain.Video) (processor.Outcome, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		peak := f.maxActive.Load()
		if n <= peak || f.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, video.ID)
	f.mu.Unlock()

	if f.ProcessFn != nil {
		return f.ProcessFn(ctx, video)
	}
	return processor.OutcomeStandardSuccess, nil
}

func (f *fakeProcessor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func warningVideo(t *testing.T, id, errorType string, incomplete ...domain.ArtifactKind) *domain.Video {
	t.Helper()
	v, err := domain.NewVideo(id, uuid.New(), domain.Transcript{
		{Text: "Mitochondria produce ATP through cellular respiration.", Start: 0, Duration: 6},
	})
	require.NoError(t, err)
	v.ProcessingStatus = domain.StatusCompletedWithWarning
	v.IncompleteMaterials = incomplete
	if errorType != "" {
		v.ErrorType = &errorType
	}
	return v
}

func warningVideos(t *testing.T, n int, errorType string) []*domain.Video {
	t.Helper()
	out := make([]*domain.Video, n)
	for i := range out {
		out[i] = warningVideo(t, fmt.Sprintf("vid-%02d", i), errorType)
	}
	return out
}

func newCoordinator(t *testing.T, videos *memory.VideoStore, proc VideoProcessor, config Config) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(videos, proc, nil, config, discardLogger())
	require.NoError(t, err)
	return c
}

func TestNewCoordinator(t *testing.T) {
	_, err := NewCoordinator(nil, &fakeProcessor{}, nil, Config{}, nil)
	assert.ErrorIs(t, err, ErrNilVideoStore)

	_, err = NewCoordinator(memory.NewVideoStore(), nil, nil, Config{}, nil)
	assert.ErrorIs(t, err, ErrNilProcessor)

	c, err := NewCoordinator(memory.NewVideoStore(), &fakeProcessor{}, nil, Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, c.config.WorkerCount)
	assert.Equal(t, 10*time.Minute, c.config.JobTimeout)
	assert.Equal(t, 11*time.Minute, c.config.LeaseTTL)
}

func TestCoordinator_Run_PanickingJobIsIsolated(t *testing.T) {
	const n = 7
	videos := memory.NewVideoStore(warningVideos(t, n, "rate_limit")...)

	proc := &fakeProcessor{
		ProcessFn: func(ctx context.Context, video *domain.Video) (processor.Outcome, error) {
			if video.ID == "vid-03" {
				panic("nil map write")
			}
			return processor.OutcomeStandardSuccess, nil
		},
	}

	summary, err := newCoordinator(t, videos, proc, DefaultConfig()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, n, summary.VideosFound)
	require.Len(t, summary.Errors, 1)
	assert.True(t, strings.HasPrefix(summary.Errors[0], "vid-03: "), summary.Errors[0])
	assert.Contains(t, summary.Errors[0], "nil map write")
	assert.Equal(t, n-1, summary.SuccessfulRetries)
	assert.Equal(t, n-1, summary.Breakdown.StandardRetry)
	assert.Equal(t, 1, summary.StillPending)
	assert.Equal(t, n, summary.Handled())
	assert.Len(t, proc.Calls(), n)
}

func TestCoordinator_Run_CountsOutcomes(t *testing.T) {
	videos := memory.NewVideoStore(
		warningVideo(t, "chunk-ok", "token_limit_input", domain.ArtifactQuizzes),
		warningVideo(t, "chunk-partial", "LLM_TOKEN_LIMIT", domain.ArtifactQuizzes),
		warningVideo(t, "standard-ok", "rate_limit"),
		warningVideo(t, "perm", "permission"),
		warningVideo(t, "broken", "unavailable"),
		warningVideo(t, "untyped", ""),
	)

	outcomes := map[string]processor.Outcome{
		"chunk-ok":      processor.OutcomeChunkedSuccess,
		"chunk-partial": processor.OutcomeChunkedPartial,
		"standard-ok":   processor.OutcomeStandardSuccess,
		"perm":          processor.OutcomePermanentFailure,
		"untyped":       processor.OutcomeStandardSuccess,
	}
	proc := &fakeProcessor{
		ProcessFn: func(ctx context.Context, video *domain.Video) (processor.Outcome, error) {
			if video.ID == "broken" {
				return processor.OutcomeNone, errors.New("write failed: password=hunter22 rejected")
			}
			return outcomes[video.ID], nil
		},
	}

	summary, err := newCoordinator(t, videos, proc, DefaultConfig()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.VideosFound)
	assert.Equal(t, 3, summary.SuccessfulRetries)
	assert.Equal(t, 1, summary.PermanentFailures)
	assert.Equal(t, 2, summary.StillPending)
	assert.Equal(t, 1, summary.Breakdown.ChunkedGeneration)
	assert.Equal(t, 2, summary.Breakdown.StandardRetry)
	assert.Equal(t, map[string]int{
		"token_limit_input": 2,
		"rate_limit":        1,
		"permission":        1,
		"unavailable":       1,
		"unknown":           1,
	}, summary.Breakdown.ByErrorType)

	require.Len(t, summary.Errors, 1)
	assert.True(t, strings.HasPrefix(summary.Errors[0], "broken: "))
	assert.NotContains(t, summary.Errors[0], "hunter22")
}

func TestCoordinator_Run_NoVideos(t *testing.T) {
	summary, err := newCoordinator(t, memory.NewVideoStore(), &fakeProcessor{}, DefaultConfig()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.VideosFound)
	assert.NotNil(t, summary.Errors)

	data, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"videosFound": 0,
		"successfulRetries": 0,
		"permanentFailures": 0,
		"stillPending": 0,
		"errors": [],
		"breakdown": {"chunkedGeneration": 0, "standardRetry": 0, "byErrorType": {}}
	}`, string(data))
}

// failingScanStore fails the retry scan.
type failingScanStore struct {
	*memory.VideoStore
}

func (s failingScanStore) FindByProcessingStatus(
	ctx context.Context,
	status domain.ProcessingStatus,
	limit int,
) ([]*domain.Video, error) {
	return nil, errors.New("connection refused")
}

func TestCoordinator_Run_ScanFailure(t *testing.T) {
	proc := &fakeProcessor{}
	c, err := NewCoordinator(failingScanStore{memory.NewVideoStore()}, proc, nil, DefaultConfig(), discardLogger())
	require.NoError(t, err)

	summary, err := c.Run(context.Background())
	assert.Nil(t, summary)
	assert.ErrorContains(t, err, "failed to find videos awaiting retry")
	assert.ErrorContains(t, err, "connection refused")
	assert.Empty(t, proc.Calls())
}

func TestCoordinator_Run_ScanLimit(t *testing.T) {
	videos := memory.NewVideoStore(warningVideos(t, 5, "rate_limit")...)
	proc := &fakeProcessor{}

	config := DefaultConfig()
	config.ScanLimit = 2
	summary, err := newCoordinator(t, videos, proc, config).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.VideosFound)
	assert.Len(t, proc.Calls(), 2)
}

func TestCoordinator_Run_RespectsWorkerCount(t *testing.T) {
	videos := memory.NewVideoStore(warningVideos(t, 12, "rate_limit")...)
	proc := &fakeProcessor{
		ProcessFn: func(ctx context.Context, video *domain.Video) (processor.Outcome, error) {
			time.Sleep(5 * time.Millisecond)
			return processor.OutcomeStandardSuccess, nil
		},
	}

	config := DefaultConfig()
	config.WorkerCount = 3
	summary, err := newCoordinator(t, videos, proc, config).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, summary.SuccessfulRetries)
	assert.LessOrEqual(t, proc.maxActive.Load(), int32(3))
}

func TestCoordinator_Run_JobTimeout(t *testing.T) {
	video := warningVideo(t, "slow", "rate_limit")
	videos := memory.NewVideoStore(video)
	proc := &fakeProcessor{
		ProcessFn: func(ctx context.Context, video *domain.Video) (processor.Outcome, error) {
			<-ctx.Done()
			return processor.OutcomeNone, fmt.Errorf("generation call: %w", ctx.Err())
		},
	}

	config := DefaultConfig()
	config.JobTimeout = 20 * time.Millisecond
	summary, err := newCoordinator(t, videos, proc, config).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "job timed out")
	assert.Equal(t, 1, summary.StillPending)

	got, err := videos.GetByID(context.Background(), "slow")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompletedWithWarning, got.ProcessingStatus)
	assert.Equal(t, "timeout", got.LastErrorType())
	assert.True(t, generation.RequiresChunking(generation.ParseErrorKind(got.LastErrorType())))
}

func TestCoordinator_Run_CallerCancellation(t *testing.T) {
	videos := memory.NewVideoStore(warningVideos(t, 4, "rate_limit")...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var inFlightCtxErr error
	proc := &fakeProcessor{
		ProcessFn: func(jobCtx context.Context, video *domain.Video) (processor.Outcome, error) {
			// The first job cancels the pass; its own context stays live.
			cancel()
			inFlightCtxErr = jobCtx.Err()
			return processor.OutcomeStandardSuccess, nil
		},
	}

	config := DefaultConfig()
	config.WorkerCount = 1
	summary, err := newCoordinator(t, videos, proc, config).Run(ctx)
	require.NoError(t, err)

	assert.NoError(t, inFlightCtxErr)
	assert.Len(t, proc.Calls(), 1)
	assert.Equal(t, 4, summary.VideosFound)
	assert.Equal(t, 1, summary.SuccessfulRetries)
	assert.Equal(t, 3, summary.StillPending)
	assert.Empty(t, summary.Errors)
}

func TestCoordinator_Run_LeaseHeldElsewhere(t *testing.T) {
	videos := memory.NewVideoStore(warningVideos(t, 3, "rate_limit")...)
	leaser := memory.NewLeaser()
	leaser.Hold("vid-01", time.Hour)

	proc := &fakeProcessor{}
	c, err := NewCoordinator(videos, proc, leaser, DefaultConfig(), discardLogger())
	require.NoError(t, err)

	summary, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.SuccessfulRetries)
	assert.Equal(t, 1, summary.StillPending)
	assert.NotContains(t, proc.Calls(), "vid-01")

	// Leases taken by the pass are released when each job ends
	lease, err := leaser.Acquire(context.Background(), "vid-00", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, lease.Release(context.Background()))
}

func TestCoordinator_Run_RejectsOverlappingRuns(t *testing.T) {
	videos := memory.NewVideoStore(warningVideo(t, "vid-00", "rate_limit"))

	started := make(chan struct{})
	release := make(chan struct{})
	proc := &fakeProcessor{
		ProcessFn: func(ctx context.Context, video *domain.Video) (processor.Outcome, error) {
			close(started)
			<-release
			return processor.OutcomeStandardSuccess, nil
		},
	}
	c := newCoordinator(t, videos, proc, DefaultConfig())

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background())
		done <- err
	}()

	<-started
	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	assert.NoError(t, <-done)
}

func TestCoordinator_Run_EndToEnd(t *testing.T) {
	tokenLimited := warningVideo(t, "token", "LLM_TOKEN_LIMIT", domain.ArtifactQuizzes, domain.ArtifactFlashcards)
	forbidden := warningVideo(t, "forbidden", "permission")
	rateLimited := warningVideo(t, "rate", "rate_limit")
	videos := memory.NewVideoStore(tokenLimited, forbidden, rateLimited)
	mats := memory.NewMaterialsStore()

	writer, err := materials.NewWriter(videos, mats, nil)
	require.NoError(t, err)
	gen := mocks.NewMockGeneratorWithMaterials(mocks.SampleMaterials())
	proc, err := processor.NewProcessor(videos, gen, writer, &mocks.MockEmbedder{}, processor.Config{}, nil)
	require.NoError(t, err)

	c, err := NewCoordinator(videos, proc, memory.NewLeaser(), DefaultConfig(), discardLogger())
	require.NoError(t, err)

	summary, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.VideosFound)
	assert.Equal(t, 2, summary.SuccessfulRetries)
	assert.Equal(t, 1, summary.PermanentFailures)
	assert.Equal(t, 1, summary.Breakdown.ChunkedGeneration)
	assert.Equal(t, 1, summary.Breakdown.StandardRetry)
	assert.Empty(t, summary.Errors)

	ctx := context.Background()
	got, err := videos.GetByID(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.ProcessingStatus)
	assert.Empty(t, got.IncompleteMaterials)

	got, err = videos.GetByID(ctx, "forbidden")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.ProcessingStatus)

	got, err = videos.GetByID(ctx, "rate")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.ProcessingStatus)
	assert.Nil(t, got.ErrorType)

	// Two chunked calls for "token" plus one full call for "rate"
	assert.Equal(t, 3, gen.CallCount())
}
