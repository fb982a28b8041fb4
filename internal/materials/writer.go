package materials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/platform/logger"
	"github.com/phrazzld/scry-materials/internal/store"
)

var (
	// ErrNilVideoStore is returned when a nil VideoStore is supplied.
	ErrNilVideoStore = errors.New("video store cannot be nil")

	// ErrNilMaterialsStore is returned when a nil MaterialsStore is supplied.
	ErrNilMaterialsStore = errors.New("materials store cannot be nil")
)

// WriteOptions controls what Write touches besides the artifact collections.
type WriteOptions struct {
	// MetadataGenerated must be true for the bundle's metadata to be copied
	// onto the video. When false the video's title, category, tags, summary
	// and chapters are left exactly as they were.
	MetadataGenerated bool
}

// WriteError reports the kind whose write failed. Kinds written before it
// stay committed.
type WriteError struct {
	Kind domain.ArtifactKind
	Err  error
}

// Error implements the error interface for WriteError.
func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Kind, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer stores material bundles.
type Writer struct {
	videos    store.VideoStore
	materials store.MaterialsStore
	logger    *slog.Logger
}

// NewWriter creates a Writer. It returns an error if either store is nil.
func NewWriter(videos store.VideoStore, materials store.MaterialsStore, logger *slog.Logger) (*Writer, error) {
	if videos == nil {
		return nil, ErrNilVideoStore
	}
	if materials == nil {
		return nil, ErrNilMaterialsStore
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		videos:    videos,
		materials: materials,
		logger:    logger.With(slog.String("component", "materials_writer")),
	}, nil
}

// Write persists every kind present in the bundle for the video. Kinds are
// written in a fixed order, each in its own transaction; the first failure
// stops the write and is returned as a *WriteError. Kinds absent from the
// bundle are not touched.
func (w *Writer) Write(ctx context.Context, videoID string, bundle *domain.Materials, opts WriteOptions) error {
	log := logger.FromContextOrDefault(ctx, w.logger).With(slog.String("video_id", videoID))

	for _, kind := range domain.StoredArtifactKinds {
		artifact, ok := bundle.Get(kind)
		if !ok {
			continue
		}

		err := w.materials.InTx(ctx, func(ctx context.Context, tx store.MaterialsStore) error {
			if err := tx.DeleteAllForJob(ctx, kind, videoID); err != nil {
				return fmt.Errorf("delete existing: %w", err)
			}
			if err := tx.InsertMany(ctx, videoID, artifact); err != nil {
				return fmt.Errorf("insert: %w", err)
			}
			return nil
		})
		if err != nil {
			log.Error("failed to write materials",
				slog.String("kind", kind.String()),
				slog.String("error", err.Error()))
			return &WriteError{Kind: kind, Err: err}
		}

		log.Debug("wrote materials",
			slog.String("kind", kind.String()),
			slog.Int("items", artifact.Len()))
	}

	if !opts.MetadataGenerated {
		return nil
	}
	meta := bundle.Metadata()
	if meta == nil {
		return nil
	}

	if err := w.videos.Update(ctx, videoID, store.VideoUpdate{Metadata: meta}); err != nil {
		log.Error("failed to write metadata", slog.String("error", err.Error()))
		return &WriteError{Kind: domain.ArtifactMetadata, Err: err}
	}
	log.Debug("wrote metadata", slog.String("title", meta.Title))

	return nil
}
