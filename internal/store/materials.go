package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/scry-materials/internal/domain"
)

// MaterialsStore defines the interface for the per-kind artifact
// collections owned by a video. Metadata is not stored here; it lives on
// the video record.
// Version: 1.0
type MaterialsStore interface {
	// DeleteAllForJob removes every stored item of the given kind for the video.
	// Deleting from an empty collection is not an error.
	DeleteAllForJob(ctx context.Context, kind domain.ArtifactKind, videoID string) error

	// InsertMany stores every item of the artifact for the video.
	// Returns ErrInvalidEntity for metadata or an artifact that fails validation.
	InsertMany(ctx context.Context, videoID string, artifact domain.Artifact) error

	// CountForJob returns the number of stored items of the given kind.
	CountForJob(ctx context.Context, kind domain.ArtifactKind, videoID string) (int, error)

	// InTx runs fn against a MaterialsStore bound to a single transaction.
	// Every change made through that store is committed if fn returns nil
	// and rolled back otherwise. If the store is already bound to a
	// transaction, fn joins it.
	InTx(ctx context.Context, fn func(ctx context.Context, tx MaterialsStore) error) error

	// WithTx returns a new MaterialsStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) MaterialsStore
}
