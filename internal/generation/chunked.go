package generation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/scry-materials/internal/domain"
)

// ChunkedConfig controls how per-kind calls are issued.
type ChunkedConfig struct {
	// Concurrency is the number of per-kind calls in flight at once.
	// Values below 1 mean sequential.
	Concurrency int
}

// ChunkedResult is the partial-success outcome of a chunked run. Materials
// and IncompleteMaterials never share a kind.
type ChunkedResult struct {
	Materials           *domain.Materials
	IncompleteMaterials []domain.ArtifactKind
	Failures            map[domain.ArtifactKind]*ClassifiedError
	Usage               Usage
}

// Complete reports whether every targeted kind was generated.
func (r *ChunkedResult) Complete() bool {
	return len(r.IncompleteMaterials) == 0
}

// FailureSummary describes the per-kind failures in a single line, kinds
// sorted by name.
func (r *ChunkedResult) FailureSummary() string {
	if len(r.Failures) == 0 {
		return ""
	}
	parts := make([]string, 0, len(r.Failures))
	for kind, ce := range r.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", kind, ce.Kind))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ChunkedGenerator produces materials with one provider call per artifact
// kind, so a failure for one kind never discards kinds that succeeded.
type ChunkedGenerator struct {
	generator   Generator
	concurrency int
	logger      *slog.Logger
}

// NewChunkedGenerator creates a ChunkedGenerator over the given provider.
func NewChunkedGenerator(generator Generator, config ChunkedConfig, logger *slog.Logger) (*ChunkedGenerator, error) {
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &ChunkedGenerator{
		generator:   generator,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "chunked_generator")),
	}, nil
}

type kindOutcome struct {
	artifact domain.Artifact
	usage    Usage
	failure  *ClassifiedError
}

// Generate issues one call per kind in only, or per kind of
// domain.AllArtifactKinds when only is empty. It never fails fast: every
// targeted kind ends up either in Materials or in IncompleteMaterials.
func (c *ChunkedGenerator) Generate(
	ctx context.Context,
	transcript domain.Transcript,
	only []domain.ArtifactKind,
) *ChunkedResult {
	kinds := domain.NormalizeKinds(only)
	outcomes := make([]kindOutcome, len(kinds))

	c.logger.Debug("starting chunked generation",
		slog.Int("kind_count", len(kinds)),
		slog.Int("concurrency", c.concurrency))

	// Each goroutine writes only its own slot and always returns nil, so
	// one kind's failure never cancels the others.
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, kind := range kinds {
		g.Go(func() error {
			outcomes[i] = c.generateKind(ctx, transcript, kind)
			return nil
		})
	}
	_ = g.Wait()

	result := &ChunkedResult{
		Materials: domain.NewMaterials(),
		Failures:  make(map[domain.ArtifactKind]*ClassifiedError),
	}
	for i, kind := range kinds {
		out := outcomes[i]
		result.Usage.Add(out.usage)
		if out.failure != nil {
			result.IncompleteMaterials = append(result.IncompleteMaterials, kind)
			result.Failures[kind] = out.failure
			continue
		}
		result.Materials.Set(out.artifact)
	}

	c.logger.Info("chunked generation finished",
		slog.Int("generated", result.Materials.Len()),
		slog.Int("incomplete", len(result.IncompleteMaterials)),
		slog.Int("prompt_tokens", result.Usage.PromptTokens),
		slog.Int("completion_tokens", result.Usage.CompletionTokens))

	return result
}

func (c *ChunkedGenerator) generateKind(
	ctx context.Context,
	transcript domain.Transcript,
	kind domain.ArtifactKind,
) (out kindOutcome) {
	log := c.logger.With(slog.String("artifact_kind", string(kind)))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during artifact generation", slog.Any("panic", r))
			out = kindOutcome{failure: NewClassifiedError(KindServiceError,
				fmt.Errorf("%w: panic generating %s: %v", ErrGenerationFailed, kind, r))}
		}
	}()

	res, err := c.generator.Generate(ctx, transcript, []domain.ArtifactKind{kind})
	if err != nil {
		ce := ClassifyError(err)
		log.Warn("artifact generation failed",
			slog.String("error_type", string(ce.Kind)),
			slog.String("error", ce.Message),
			slog.Duration("duration", time.Since(start)))
		return kindOutcome{failure: ce}
	}

	var usage Usage
	if res != nil {
		usage = res.Usage
	}

	var artifact domain.Artifact
	if res != nil {
		artifact, _ = res.Materials.Get(kind)
	}
	if artifact == nil {
		err := fmt.Errorf("%w: %s", ErrMissingArtifact, kind)
		log.Warn("artifact missing from response")
		return kindOutcome{usage: usage, failure: NewClassifiedError(Classify(err.Error()), err)}
	}
	if err := artifact.Validate(); err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		log.Warn("artifact failed validation", slog.String("error", err.Error()))
		return kindOutcome{usage: usage, failure: NewClassifiedError(Classify(err.Error()), err)}
	}

	log.Debug("artifact generated",
		slog.Int("items", artifact.Len()),
		slog.Duration("duration", time.Since(start)))
	return kindOutcome{artifact: artifact, usage: usage}
}
