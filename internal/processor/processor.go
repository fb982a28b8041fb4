package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/generation"
	"github.com/phrazzld/scry-materials/internal/materials"
	"github.com/phrazzld/scry-materials/internal/platform/logger"
	"github.com/phrazzld/scry-materials/internal/platform/metrics"
	"github.com/phrazzld/scry-materials/internal/redact"
	"github.com/phrazzld/scry-materials/internal/store"
)

// Outcome names the branch a processing attempt took.
type Outcome string

// Possible outcomes. OutcomeNone accompanies a returned error: the video
// was left as it was.
const (
	OutcomeNone             Outcome = ""
	OutcomePermanentFailure Outcome = "permanent_failure"
	OutcomeChunkedSuccess   Outcome = "chunked_success"
	OutcomeChunkedPartial   Outcome = "chunked_partial"
	OutcomeStandardSuccess  Outcome = "standard_success"
	OutcomeInitialSuccess   Outcome = "initial_success"
	OutcomeInitialPartial   Outcome = "initial_partial"
)

// DefaultEmbeddingMaxRunes bounds the text sent to the embedder.
const DefaultEmbeddingMaxRunes = 8000

var (
	ErrNilVideoStore = errors.New("video store cannot be nil")
	ErrNilGenerator  = errors.New("generator cannot be nil")
	ErrNilWriter     = errors.New("materials writer cannot be nil")
	ErrNilVideo      = errors.New("video cannot be nil")

	// ErrNotRetryable is returned by Process for a video that is not
	// completed_with_warning.
	ErrNotRetryable = errors.New("video is not awaiting retry")

	// ErrNotPending is returned by ProcessInitial for a video that is
	// neither pending nor processing.
	ErrNotPending = errors.New("video is not pending")
)

// MaterialsWriter persists generated bundles.
type MaterialsWriter interface {
	Write(ctx context.Context, videoID string, bundle *domain.Materials, opts materials.WriteOptions) error
}

// Config holds the processor's tunables.
type Config struct {
	// ChunkConcurrency bounds concurrent per-kind calls in chunked mode.
	ChunkConcurrency int
	// EmbeddingMaxRunes bounds the embedded text. Zero means the default.
	EmbeddingMaxRunes int
}

// Processor applies the retry state machine to one video at a time.
//
// Retries are unbounded: transient and chunking failures leave a video
// completed_with_warning, and only permanent error kinds or operator action
// end the cycle.
// TODO: add an attempt counter column to videos and fail after N passes.
type Processor struct {
	videos    store.VideoStore
	generator generation.Generator
	chunked   *generation.ChunkedGenerator
	writer    MaterialsWriter
	embedder  generation.Embedder
	maxRunes  int
	logger    *slog.Logger
	now       func() time.Time
}

// NewProcessor creates a Processor. The embedder may be nil, in which case
// embeddings are never backfilled.
func NewProcessor(
	videos store.VideoStore,
	generator generation.Generator,
	writer MaterialsWriter,
	embedder generation.Embedder,
	config Config,
	logger *slog.Logger,
) (*Processor, error) {
	if videos == nil {
		return nil, ErrNilVideoStore
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if writer == nil {
		return nil, ErrNilWriter
	}
	if logger == nil {
		logger = slog.Default()
	}

	chunked, err := generation.NewChunkedGenerator(
		generator,
		generation.ChunkedConfig{Concurrency: config.ChunkConcurrency},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunked generator: %w", err)
	}

	maxRunes := config.EmbeddingMaxRunes
	if maxRunes <= 0 {
		maxRunes = DefaultEmbeddingMaxRunes
	}

	return &Processor{
		videos:    videos,
		generator: generator,
		chunked:   chunked,
		writer:    writer,
		embedder:  embedder,
		maxRunes:  maxRunes,
		logger:    logger.With(slog.String("component", "processor")),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Process runs one retry attempt for a completed_with_warning video. The
// stored error type picks the strategy:
//
//   - permanent kinds mark the video failed without calling the provider
//   - token limits and timeouts regenerate only the incomplete kinds, one
//     call per kind
//   - everything else, including an absent or unknown type, makes one full
//     generation call
//
// A returned error means the video was not changed. Generation failures are
// returned as *generation.ClassifiedError.
func (p *Processor) Process(ctx context.Context, video *domain.Video) (Outcome, error) {
	if video == nil {
		return OutcomeNone, ErrNilVideo
	}
	if !video.IsRetryable() {
		return OutcomeNone, fmt.Errorf("%w: %s is %s", ErrNotRetryable, video.ID, video.ProcessingStatus)
	}

	kind := generation.ParseErrorKind(video.LastErrorType())
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("video_id", video.ID),
		slog.String("error_type", kind.String()))
	ctx = logger.WithLogger(ctx, log)

	start := time.Now()
	var (
		strategy string
		outcome  Outcome
		err      error
	)
	switch {
	case generation.IsPermanent(kind):
		strategy = "permanent"
		outcome, err = p.markFailed(ctx, video)
	case generation.RequiresChunking(kind):
		strategy = "chunked"
		outcome, err = p.processChunked(ctx, video)
	default:
		strategy = "standard"
		outcome, err = p.processStandard(ctx, video)
	}
	metrics.JobDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Warn("retry attempt failed",
			slog.String("strategy", strategy),
			slog.String("error", redact.Error(err)))
		return OutcomeNone, err
	}

	log.Info("retry attempt finished",
		slog.String("strategy", strategy),
		slog.String("outcome", string(outcome)))
	return outcome, nil
}

func (p *Processor) markFailed(ctx context.Context, video *domain.Video) (Outcome, error) {
	now := p.now()
	update := store.VideoUpdate{
		ProcessingStatus: ptr(domain.StatusFailed),
		MaterialsStatus:  ptr(domain.MaterialsIncomplete),
		ProcessedAt:      &now,
	}
	if err := p.videos.Update(ctx, video.ID, update); err != nil {
		return OutcomeNone, fmt.Errorf("failed to mark video %s failed: %w", video.ID, err)
	}
	return OutcomePermanentFailure, nil
}

func (p *Processor) processChunked(ctx context.Context, video *domain.Video) (Outcome, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)
	targets := domain.NormalizeKinds(video.IncompleteMaterials)

	result := p.chunked.Generate(ctx, video.Transcript, targets)
	recordUsage(result.Usage)
	for _, failure := range result.Failures {
		metrics.GenerationFailures.WithLabelValues(failure.Kind.String()).Inc()
	}

	if result.Materials.Len() > 0 {
		opts := materials.WriteOptions{MetadataGenerated: result.Materials.Has(domain.ArtifactMetadata)}
		if err := p.writer.Write(ctx, video.ID, result.Materials, opts); err != nil {
			return OutcomeNone, fmt.Errorf("failed to write materials for video %s: %w", video.ID, err)
		}
	}

	now := p.now()
	if result.Complete() {
		update := completedUpdate(now)
		p.backfillEmbedding(ctx, video, result.Materials.Metadata(), &update)
		if err := p.videos.Update(ctx, video.ID, update); err != nil {
			return OutcomeNone, fmt.Errorf("failed to complete video %s: %w", video.ID, err)
		}
		return OutcomeChunkedSuccess, nil
	}

	// The stored error type is kept so the next pass chunks again.
	incomplete := result.IncompleteMaterials
	message := redact.Truncate(redact.String(result.FailureSummary()), redact.DefaultMaxLength)
	update := store.VideoUpdate{
		ProcessingStatus:    ptr(domain.StatusCompletedWithWarning),
		MaterialsStatus:     ptr(domain.MaterialsIncomplete),
		IncompleteMaterials: &incomplete,
		ErrorMessage:        &message,
		ProcessedAt:         &now,
	}
	if err := p.videos.Update(ctx, video.ID, update); err != nil {
		return OutcomeNone, fmt.Errorf("failed to record partial result for video %s: %w", video.ID, err)
	}

	log.Info("chunked regeneration left kinds incomplete",
		slog.Int("generated", result.Materials.Len()),
		slog.String("failures", result.FailureSummary()))
	return OutcomeChunkedPartial, nil
}

func (p *Processor) processStandard(ctx context.Context, video *domain.Video) (Outcome, error) {
	bundle, err := p.generateFull(ctx, video.Transcript)
	if err != nil {
		return OutcomeNone, err
	}
	if missing := bundle.Missing(domain.AllArtifactKinds); len(missing) > 0 {
		ce := generation.ClassifyError(fmt.Errorf("%w: %v", generation.ErrMissingArtifact, missing))
		metrics.GenerationFailures.WithLabelValues(ce.Kind.String()).Inc()
		return OutcomeNone, ce
	}

	if err := p.writer.Write(ctx, video.ID, bundle, materials.WriteOptions{MetadataGenerated: true}); err != nil {
		return OutcomeNone, fmt.Errorf("failed to write materials for video %s: %w", video.ID, err)
	}

	update := completedUpdate(p.now())
	p.backfillEmbedding(ctx, video, bundle.Metadata(), &update)
	if err := p.videos.Update(ctx, video.ID, update); err != nil {
		return OutcomeNone, fmt.Errorf("failed to complete video %s: %w", video.ID, err)
	}
	return OutcomeStandardSuccess, nil
}

// ProcessInitial runs the first generation attempt for a pending video. It
// marks the video processing, makes one full generation call and records
// the result:
//
//   - a complete bundle completes the video
//   - a bundle with missing or invalid kinds stores the valid ones and
//     leaves the rest for the retry coordinator
//   - a permanent failure marks the video failed
//   - any other failure leaves every kind incomplete with the classified
//     error type, so the coordinator picks the right strategy
//
// A returned error means a store operation failed. A video left in
// processing is reset to pending by stuck-task recovery.
func (p *Processor) ProcessInitial(ctx context.Context, video *domain.Video) (Outcome, error) {
	if video == nil {
		return OutcomeNone, ErrNilVideo
	}

	log := logger.FromContextOrDefault(ctx, p.logger).With(slog.String("video_id", video.ID))
	ctx = logger.WithLogger(ctx, log)

	switch video.ProcessingStatus {
	case domain.StatusPending:
		if err := p.videos.Update(ctx, video.ID, store.VideoUpdate{
			ProcessingStatus: ptr(domain.StatusProcessing),
		}); err != nil {
			return OutcomeNone, fmt.Errorf("failed to mark video %s processing: %w", video.ID, err)
		}
	case domain.StatusProcessing:
		log.Info("resuming video left in processing")
	default:
		return OutcomeNone, fmt.Errorf("%w: %s is %s", ErrNotPending, video.ID, video.ProcessingStatus)
	}

	start := time.Now()
	defer func() {
		metrics.JobDuration.WithLabelValues("initial").Observe(time.Since(start).Seconds())
	}()

	bundle, err := p.generateFull(ctx, video.Transcript)
	if err != nil {
		var ce *generation.ClassifiedError
		if !errors.As(err, &ce) {
			ce = generation.ClassifyError(err)
		}
		return p.recordInitialFailure(ctx, video, ce)
	}

	missing := bundle.Missing(domain.AllArtifactKinds)
	if bundle.Len() > 0 {
		opts := materials.WriteOptions{MetadataGenerated: bundle.Has(domain.ArtifactMetadata)}
		if err := p.writer.Write(ctx, video.ID, bundle, opts); err != nil {
			return OutcomeNone, fmt.Errorf("failed to write materials for video %s: %w", video.ID, err)
		}
	}

	if len(missing) > 0 {
		ce := generation.ClassifyError(fmt.Errorf("%w: %v", generation.ErrMissingArtifact, missing))
		now := p.now()
		errorType := ce.Kind.String()
		message := redact.Message(ce)
		update := store.VideoUpdate{
			ProcessingStatus:    ptr(domain.StatusCompletedWithWarning),
			MaterialsStatus:     ptr(domain.MaterialsIncomplete),
			IncompleteMaterials: &missing,
			ErrorType:           &errorType,
			ErrorMessage:        &message,
			ProcessedAt:         &now,
		}
		if err := p.videos.Update(ctx, video.ID, update); err != nil {
			return OutcomeNone, fmt.Errorf("failed to record partial result for video %s: %w", video.ID, err)
		}
		log.Warn("initial generation incomplete", slog.Any("missing", missing))
		return OutcomeInitialPartial, nil
	}

	update := completedUpdate(p.now())
	p.backfillEmbedding(ctx, video, bundle.Metadata(), &update)
	if err := p.videos.Update(ctx, video.ID, update); err != nil {
		return OutcomeNone, fmt.Errorf("failed to complete video %s: %w", video.ID, err)
	}
	log.Info("initial generation completed")
	return OutcomeInitialSuccess, nil
}

func (p *Processor) recordInitialFailure(
	ctx context.Context,
	video *domain.Video,
	ce *generation.ClassifiedError,
) (Outcome, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)
	now := p.now()
	errorType := ce.Kind.String()
	message := redact.Message(ce)

	update := store.VideoUpdate{
		MaterialsStatus: ptr(domain.MaterialsIncomplete),
		ErrorType:       &errorType,
		ErrorMessage:    &message,
		ProcessedAt:     &now,
	}
	outcome := OutcomeInitialPartial
	if generation.IsPermanent(ce.Kind) {
		update.ProcessingStatus = ptr(domain.StatusFailed)
		outcome = OutcomePermanentFailure
	} else {
		all := append([]domain.ArtifactKind(nil), domain.AllArtifactKinds...)
		update.ProcessingStatus = ptr(domain.StatusCompletedWithWarning)
		update.IncompleteMaterials = &all
	}

	if err := p.videos.Update(ctx, video.ID, update); err != nil {
		return OutcomeNone, fmt.Errorf("failed to record generation failure for video %s: %w", video.ID, err)
	}

	log.Warn("initial generation failed",
		slog.String("error_type", errorType),
		slog.Bool("permanent", generation.IsPermanent(ce.Kind)),
		slog.String("error", message))
	return outcome, nil
}

// generateFull makes one full generation call and drops kinds that fail
// validation. Provider errors come back classified.
func (p *Processor) generateFull(ctx context.Context, transcript domain.Transcript) (*domain.Materials, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	result, err := p.generator.Generate(ctx, transcript, nil)
	if err == nil && (result == nil || result.Materials == nil) {
		err = generation.ErrInvalidResponse
	}
	if err != nil {
		ce := generation.ClassifyError(err)
		metrics.GenerationFailures.WithLabelValues(ce.Kind.String()).Inc()
		return nil, ce
	}
	recordUsage(result.Usage)

	bundle := result.Materials
	for _, kind := range bundle.Kinds() {
		artifact, _ := bundle.Get(kind)
		if verr := artifact.Validate(); verr != nil {
			log.Warn("dropping invalid artifact",
				slog.String("kind", kind.String()),
				slog.String("error", verr.Error()))
			bundle.Remove(kind)
		}
	}
	return bundle, nil
}

func (p *Processor) backfillEmbedding(
	ctx context.Context,
	video *domain.Video,
	meta *domain.Metadata,
	update *store.VideoUpdate,
) {
	if p.embedder == nil || video.HasEmbedding() {
		return
	}
	log := logger.FromContextOrDefault(ctx, p.logger)

	if meta == nil {
		meta = video.Metadata()
	}
	text := domain.EmbeddingText(meta, video.Transcript, p.maxRunes)
	if strings.TrimSpace(text) == "" {
		return
	}

	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		metrics.EmbeddingFailures.Inc()
		log.Warn("embedding failed, completing without embedding",
			slog.String("error", redact.Error(err)))
		return
	}
	update.Embedding = vec
}

func completedUpdate(now time.Time) store.VideoUpdate {
	return store.VideoUpdate{
		ProcessingStatus:    ptr(domain.StatusCompleted),
		MaterialsStatus:     ptr(domain.MaterialsComplete),
		IncompleteMaterials: &[]domain.ArtifactKind{},
		ClearError:          true,
		ProcessedAt:         &now,
	}
}

func recordUsage(u generation.Usage) {
	metrics.GenerationTokens.WithLabelValues("prompt").Add(float64(u.PromptTokens))
	metrics.GenerationTokens.WithLabelValues("completion").Add(float64(u.CompletionTokens))
}

func ptr[T any](v T) *T {
	return &v
}
