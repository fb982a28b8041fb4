package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/platform/logger"
	"github.com/phrazzld/scry-materials/internal/store"
)

// materialsTables maps each stored kind to its table. Every table has the
// columns (id, video_id, position, content, created_at).
var materialsTables = map[domain.ArtifactKind]string{
	domain.ArtifactFlashcards:    "flashcards",
	domain.ArtifactQuizzes:       "quizzes",
	domain.ArtifactPrerequisites: "prerequisites",
	domain.ArtifactCaseStudy:     "case_studies",
	domain.ArtifactConceptMap:    "concept_maps",
}

// ErrNoTransactionSupport is returned by InTx when the store was built on a
// handle that cannot begin transactions.
var ErrNoTransactionSupport = errors.New("database handle cannot begin transactions")

// PostgresMaterialsStore implements the store.MaterialsStore interface
// using one PostgreSQL table per artifact kind.
type PostgresMaterialsStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time

	// bound is set on stores returned by WithTx.
	bound bool
}

// NewPostgresMaterialsStore creates a new PostgreSQL implementation of the MaterialsStore interface.
// InTx requires db to be a *sql.DB (or anything else that can begin transactions).
// If logger is nil, a default logger will be used.
func NewPostgresMaterialsStore(db store.DBTX, logger *slog.Logger) *PostgresMaterialsStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMaterialsStore{
		db:     db,
		logger: logger.With(slog.String("component", "materials_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ensure PostgresMaterialsStore implements store.MaterialsStore interface
var _ store.MaterialsStore = (*PostgresMaterialsStore)(nil)

// DeleteAllForJob implements store.MaterialsStore.DeleteAllForJob.
func (s *PostgresMaterialsStore) DeleteAllForJob(ctx context.Context, kind domain.ArtifactKind, videoID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE video_id = $1", videoID)
	if err != nil {
		log.Error("failed to delete materials",
			slog.String("error", err.Error()),
			slog.String("video_id", videoID),
			slog.String("artifact_kind", string(kind)))
		return store.NewStoreError(table, "delete", "delete for video failed", MapError(err))
	}

	if n, err := result.RowsAffected(); err == nil {
		log.Debug("deleted materials",
			slog.String("video_id", videoID),
			slog.String("artifact_kind", string(kind)),
			slog.Int64("rows", n))
	}
	return nil
}

// InsertMany implements store.MaterialsStore.InsertMany. All items of the
// artifact are written with a single multi-row INSERT.
func (s *PostgresMaterialsStore) InsertMany(ctx context.Context, videoID string, artifact domain.Artifact) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if artifact == nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidArtifactKind)
	}
	table, err := tableFor(artifact.Kind())
	if err != nil {
		return err
	}
	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	items, err := artifactItems(artifact)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	const cols = 5
	now := s.now()
	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*cols)
	for i, item := range items {
		base := i * cols
		placeholders = append(placeholders,
			fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5))
		args = append(args, uuid.New(), videoID, i, item, now)
	}

	query := "INSERT INTO " + table + " (id, video_id, position, content, created_at) VALUES " +
		strings.Join(placeholders, ", ")

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to insert materials",
			slog.String("error", err.Error()),
			slog.String("video_id", videoID),
			slog.String("artifact_kind", string(artifact.Kind())),
			slog.Int("items", len(items)))
		return store.NewStoreError(table, "insert", "batch insert failed", MapError(err))
	}
	return nil
}

// CountForJob implements store.MaterialsStore.CountForJob.
func (s *PostgresMaterialsStore) CountForJob(ctx context.Context, kind domain.ArtifactKind, videoID string) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE video_id = $1", videoID).Scan(&n); err != nil {
		return 0, store.NewStoreError(table, "count", "count for video failed", MapError(err))
	}
	return n, nil
}

// InTx implements store.MaterialsStore.InTx. A store returned by WithTx
// runs fn on its existing transaction.
func (s *PostgresMaterialsStore) InTx(
	ctx context.Context,
	fn func(ctx context.Context, tx store.MaterialsStore) error,
) error {
	if s.bound {
		return fn(ctx, s)
	}

	beginner, ok := s.db.(store.TxBeginner)
	if !ok {
		return ErrNoTransactionSupport
	}

	return store.RunInTransaction(ctx, beginner, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.WithTx(tx))
	})
}

// WithTx implements store.MaterialsStore.WithTx.
func (s *PostgresMaterialsStore) WithTx(tx *sql.Tx) store.MaterialsStore {
	return &PostgresMaterialsStore{
		db:     tx,
		logger: s.logger,
		now:    s.now,
		bound:  true,
	}
}

func tableFor(kind domain.ArtifactKind) (string, error) {
	table, ok := materialsTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: %w: %s", store.ErrInvalidEntity, domain.ErrInvalidArtifactKind, kind)
	}
	return table, nil
}

// artifactItems splits an artifact into the JSON documents stored one per
// row. List artifacts store each element; single artifacts store themselves.
func artifactItems(a domain.Artifact) ([][]byte, error) {
	var values []any
	switch v := a.(type) {
	case *domain.FlashcardSet:
		for _, c := range v.Cards {
			values = append(values, c)
		}
	case *domain.QuizSet:
		for _, q := range v.Questions {
			values = append(values, q)
		}
	case *domain.PrerequisiteSet:
		for _, p := range v.Items {
			values = append(values, p)
		}
	default:
		values = append(values, v)
	}

	items := make([][]byte, 0, len(values))
	for _, value := range values {
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s item: %w", a.Kind(), err)
		}
		items = append(items, b)
	}
	return items, nil
}
