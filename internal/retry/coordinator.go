package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/generation"
	"github.com/phrazzld/scry-materials/internal/platform/logger"
	"github.com/phrazzld/scry-materials/internal/platform/metrics"
	"github.com/phrazzld/scry-materials/internal/processor"
	"github.com/phrazzld/scry-materials/internal/redact"
	"github.com/phrazzld/scry-materials/internal/store"
	"github.com/phrazzld/scry-materials/internal/task"
)

var (
	ErrNilVideoStore = errors.New("video store cannot be nil")
	ErrNilProcessor  = errors.New("processor cannot be nil")

	// ErrRunInProgress is returned by Run while another pass of the same
	// coordinator is still running.
	ErrRunInProgress = errors.New("retry run already in progress")

	// ErrJobTimeout marks a job that exceeded the per-job timeout.
	ErrJobTimeout = errors.New("job timed out")
)

// Outcomes recorded in metrics for videos the processor did not handle.
const (
	outcomeLeaseHeld    = "lease_held"
	outcomeNotScheduled = "not_scheduled"
	outcomeError        = "error"
)

// VideoProcessor retries one video.
type VideoProcessor interface {
	Process(ctx context.Context, video *domain.Video) (processor.Outcome, error)
}

// Config holds coordinator tunables.
type Config struct {
	// WorkerCount caps how many videos are processed at once.
	WorkerCount int
	// JobTimeout bounds the wall-clock time of one video.
	JobTimeout time.Duration
	// ScanLimit caps how many videos one pass picks up. Zero means no limit.
	ScanLimit int
	// LeaseTTL is how long a per-video lease is held. Zero means JobTimeout
	// plus a minute.
	LeaseTTL time.Duration
}

// DefaultConfig returns the coordinator defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount: 3,
		JobTimeout:  10 * time.Minute,
	}
}

// Coordinator runs retry passes over completed_with_warning videos.
type Coordinator struct {
	videos    store.VideoStore
	processor VideoProcessor
	leaser    store.Leaser
	config    Config
	logger    *slog.Logger
	running   atomic.Bool
}

// NewCoordinator creates a Coordinator. leaser may be nil when a single
// replica runs the coordinator.
func NewCoordinator(
	videos store.VideoStore,
	proc VideoProcessor,
	leaser store.Leaser,
	config Config,
	logger *slog.Logger,
) (*Coordinator, error) {
	if videos == nil {
		return nil, ErrNilVideoStore
	}
	if proc == nil {
		return nil, ErrNilProcessor
	}
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultConfig()
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	if config.LeaseTTL <= 0 {
		config.LeaseTTL = config.JobTimeout + time.Minute
	}

	return &Coordinator{
		videos:    videos,
		processor: proc,
		leaser:    leaser,
		config:    config,
		logger:    logger.With("component", "retry_coordinator"),
	}, nil
}

// Run performs one pass. Every scanned video ends up counted in the
// Summary; a job that fails or panics adds one entry to Summary.Errors and
// never stops the others. Only a failed scan returns an error.
//
// Cancelling ctx stops scheduling: videos not yet started are counted as
// still pending, while started jobs run on to completion or their timeout.
func (c *Coordinator) Run(ctx context.Context) (*Summary, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer c.running.Store(false)

	start := time.Now()
	log := logger.FromContextOrDefault(ctx, c.logger)

	videos, err := c.videos.FindByProcessingStatus(ctx, domain.StatusCompletedWithWarning, c.config.ScanLimit)
	if err != nil {
		metrics.RetryRuns.WithLabelValues("scan_failed").Inc()
		log.Error("failed to scan for videos awaiting retry", "error", err)
		return nil, fmt.Errorf("failed to find videos awaiting retry: %w", err)
	}

	log.Info("starting retry pass",
		"videos_found", len(videos),
		"worker_count", c.config.WorkerCount)

	t := newTally(len(videos))
	for _, v := range videos {
		kind := generation.ParseErrorKind(v.LastErrorType()).String()
		t.errorType(kind)
		metrics.RetryErrorTypes.WithLabelValues(kind).Inc()
	}

	queue := task.NewTaskQueue(len(videos), log)
	pool := task.NewWorkerPool(queue, task.WorkerPoolConfig{WorkerCount: c.config.WorkerCount}, log)
	pool.SetErrorHandler(func(job task.Task, err error) {
		metrics.RetryVideos.WithLabelValues(outcomeError).Inc()
		t.failure(job.ID(), err)
	})

	for _, v := range videos {
		job := &retryJob{coordinator: c, runCtx: ctx, video: v, tally: t}
		if err := queue.Enqueue(job); err != nil {
			// The queue is sized to the scan, so this only guards the count.
			t.failure(v.ID, err)
		}
	}
	queue.Close()

	pool.Start()
	pool.Wait()

	summary := t.result()
	elapsed := time.Since(start)
	metrics.RetryRuns.WithLabelValues("ok").Inc()
	metrics.RetryRunDuration.Observe(elapsed.Seconds())

	log.Info("retry pass finished",
		"videos_found", summary.VideosFound,
		"successful_retries", summary.SuccessfulRetries,
		"permanent_failures", summary.PermanentFailures,
		"still_pending", summary.StillPending,
		"errors", len(summary.Errors),
		"duration", elapsed)

	return summary, nil
}

// recordTimeout marks a video whose job ran out of time so the next pass
// regenerates it in chunks. Status and materials are left alone.
func (c *Coordinator) recordTimeout(ctx context.Context, videoID string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	errorType := generation.KindTimeout.String()
	message := fmt.Sprintf("processing exceeded %s", c.config.JobTimeout)
	if err := c.videos.Update(ctx, videoID, store.VideoUpdate{
		ErrorType:    &errorType,
		ErrorMessage: &message,
	}); err != nil {
		log.Error("failed to record job timeout", "error", err)
	}
}

// retryJob adapts one video to task.Task so it can run on the worker pool.
type retryJob struct {
	coordinator *Coordinator
	runCtx      context.Context
	video       *domain.Video
	tally       *tally
	status      atomic.Value
}

var _ task.Task = (*retryJob)(nil)

func (j *retryJob) ID() string { return j.video.ID }

func (j *retryJob) Type() string { return task.TaskTypeMaterialsRetry }

func (j *retryJob) Payload() []byte {
	data, _ := json.Marshal(map[string]string{"video_id": j.video.ID, "error_type": j.video.LastErrorType()})
	return data
}

func (j *retryJob) Status() task.TaskStatus {
	if s, ok := j.status.Load().(task.TaskStatus); ok {
		return s
	}
	return task.TaskStatusPending
}

// Execute runs the processor on a context detached from the caller so
// that cancelling a pass never interrupts a job in flight.
func (j *retryJob) Execute(poolCtx context.Context) (err error) {
	c := j.coordinator
	log := logger.FromContextOrDefault(poolCtx, c.logger).With("video_id", j.video.ID)

	j.status.Store(task.TaskStatusProcessing)
	defer func() {
		if err != nil {
			j.status.Store(task.TaskStatusFailed)
		} else {
			j.status.Store(task.TaskStatusCompleted)
		}
	}()

	if j.runCtx.Err() != nil {
		log.Info("retry pass cancelled, leaving video for the next pass")
		metrics.RetryVideos.WithLabelValues(outcomeNotScheduled).Inc()
		j.tally.pending()
		return nil
	}

	base := logger.WithLogger(context.WithoutCancel(j.runCtx), log)

	if c.leaser != nil {
		lease, err := c.leaser.Acquire(base, j.video.ID, c.config.LeaseTTL)
		if errors.Is(err, store.ErrLeaseHeld) {
			log.Info("video leased by another worker, skipping")
			metrics.RetryVideos.WithLabelValues(outcomeLeaseHeld).Inc()
			j.tally.pending()
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to acquire lease: %w", err)
		}
		defer func() {
			if releaseErr := lease.Release(base); releaseErr != nil {
				log.Warn("failed to release lease", "error", releaseErr)
			}
		}()
	}

	jobCtx, cancel := context.WithTimeout(base, c.config.JobTimeout)
	defer cancel()

	outcome, err := c.processor.Process(jobCtx, j.video)
	if err != nil {
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			c.recordTimeout(base, j.video.ID, log)
			return fmt.Errorf("%w after %s: %s", ErrJobTimeout, c.config.JobTimeout, redact.Error(err))
		}
		return err
	}

	log.Info("video retried", "outcome", outcome)
	metrics.RetryVideos.WithLabelValues(string(outcome)).Inc()
	j.tally.outcome(outcome)
	return nil
}
