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

	"github.com/pgvector/pgvector-go"

	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/platform/logger"
	"github.com/phrazzld/scry-materials/internal/store"
)

const videoColumns = `
	id, user_id, transcript, processing_status, materials_status,
	incomplete_materials, error_type, error_message, embedding,
	title, category, tags, summary, chapters,
	processed_at, created_at, updated_at`

// PostgresVideoStore implements the store.VideoStore interface
// using a PostgreSQL database as the storage backend.
type PostgresVideoStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresVideoStore creates a new PostgreSQL implementation of the VideoStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresVideoStore(db store.DBTX, logger *slog.Logger) *PostgresVideoStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresVideoStore{
		db:     db,
		logger: logger.With(slog.String("component", "video_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ensure PostgresVideoStore implements store.VideoStore interface
var _ store.VideoStore = (*PostgresVideoStore)(nil)

// Create implements store.VideoStore.Create.
// Returns store.ErrVideoExists if the ID is taken.
func (s *PostgresVideoStore) Create(ctx context.Context, video *domain.Video) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := video.Validate(); err != nil {
		log.Warn("video validation failed during create",
			slog.String("error", err.Error()),
			slog.String("video_id", video.ID))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	transcript, err := json.Marshal(video.Transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	incomplete, err := marshalJSONList(video.IncompleteMaterials)
	if err != nil {
		return err
	}
	tags, err := marshalJSONList(video.Tags)
	if err != nil {
		return err
	}
	chapters, err := marshalJSONList(video.Chapters)
	if err != nil {
		return err
	}

	query := `INSERT INTO videos (` + videoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = s.db.ExecContext(ctx, query,
		video.ID,
		video.UserID,
		transcript,
		video.ProcessingStatus,
		video.MaterialsStatus,
		incomplete,
		video.ErrorType,
		video.ErrorMessage,
		vectorArg(video.Embedding),
		video.Title,
		video.Category,
		tags,
		video.Summary,
		chapters,
		video.ProcessedAt,
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("video already exists", slog.String("video_id", video.ID))
			return fmt.Errorf("%w: %s", store.ErrVideoExists, video.ID)
		}
		log.Error("failed to create video",
			slog.String("error", err.Error()),
			slog.String("video_id", video.ID))
		return MapError(err)
	}

	log.Debug("video created", slog.String("video_id", video.ID))
	return nil
}

// GetByID implements store.VideoStore.GetByID.
// Returns store.ErrVideoNotFound if the video does not exist.
func (s *PostgresVideoStore) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	video, err := scanVideo(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("video not found", slog.String("video_id", id))
			return nil, store.ErrVideoNotFound
		}
		log.Error("failed to get video by ID",
			slog.String("error", err.Error()),
			slog.String("video_id", id))
		return nil, MapError(err)
	}
	return video, nil
}

// FindByProcessingStatus implements store.VideoStore.FindByProcessingStatus.
func (s *PostgresVideoStore) FindByProcessingStatus(
	ctx context.Context,
	status domain.ProcessingStatus,
	limit int,
) ([]*domain.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos
		WHERE processing_status = $1
		ORDER BY updated_at ASC, id ASC`
	args := []any{status}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.queryVideos(ctx, query, args...)
}

// FindStaleProcessing implements store.VideoStore.FindStaleProcessing.
func (s *PostgresVideoStore) FindStaleProcessing(ctx context.Context, olderThan time.Duration) ([]*domain.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos
		WHERE processing_status = $1 AND updated_at < $2
		ORDER BY updated_at ASC, id ASC`
	return s.queryVideos(ctx, query, domain.StatusProcessing, s.now().Add(-olderThan))
}

func (s *PostgresVideoStore) queryVideos(ctx context.Context, query string, args ...any) ([]*domain.Video, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query videos", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query videos: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	videos := make([]*domain.Video, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			log.Error("failed to scan video row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan video row: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating video rows: %w", err)
	}
	return videos, nil
}

// Update implements store.VideoStore.Update. Only the fields set on update
// are written; updated_at is always bumped. The table's check constraints
// reject inconsistent status combinations with store.ErrInvalidEntity.
func (s *PostgresVideoStore) Update(ctx context.Context, id string, update store.VideoUpdate) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if update.IsEmpty() {
		return fmt.Errorf("%w: no fields to update", store.ErrUpdateFailed)
	}

	sets, args, err := updateAssignments(update)
	if err != nil {
		return err
	}
	args = append(args, s.now())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf("UPDATE videos SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update video",
			slog.String("error", err.Error()),
			slog.String("video_id", id))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "video"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrVideoNotFound
		}
		return err
	}
	return nil
}

// updateAssignments builds the SET list and its arguments, numbered from $1.
func updateAssignments(u store.VideoUpdate) ([]string, []any, error) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.ProcessingStatus != nil {
		add("processing_status", *u.ProcessingStatus)
	}
	if u.MaterialsStatus != nil {
		add("materials_status", *u.MaterialsStatus)
	}
	if u.IncompleteMaterials != nil {
		b, err := marshalJSONList(*u.IncompleteMaterials)
		if err != nil {
			return nil, nil, err
		}
		add("incomplete_materials", b)
	}
	if u.ClearError {
		sets = append(sets, "error_type = NULL", "error_message = NULL")
	} else {
		if u.ErrorType != nil {
			add("error_type", *u.ErrorType)
		}
		if u.ErrorMessage != nil {
			add("error_message", *u.ErrorMessage)
		}
	}
	if u.Embedding != nil {
		add("embedding", pgvector.NewVector(u.Embedding))
	}
	if u.ProcessedAt != nil {
		add("processed_at", *u.ProcessedAt)
	}
	if u.Metadata != nil {
		tags, err := marshalJSONList(u.Metadata.Tags)
		if err != nil {
			return nil, nil, err
		}
		chapters, err := marshalJSONList(u.Metadata.Chapters)
		if err != nil {
			return nil, nil, err
		}
		add("title", u.Metadata.Title)
		add("category", u.Metadata.Category)
		add("tags", tags)
		add("summary", u.Metadata.Summary)
		add("chapters", chapters)
	}
	return sets, args, nil
}

// WithTx implements store.VideoStore.WithTx.
func (s *PostgresVideoStore) WithTx(tx *sql.Tx) store.VideoStore {
	return &PostgresVideoStore{
		db:     tx,
		logger: s.logger,
		now:    s.now,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*domain.Video, error) {
	var (
		v          domain.Video
		transcript []byte
		incomplete []byte
		tags       []byte
		chapters   []byte
		errorType  sql.NullString
		errorMsg   sql.NullString
		embedding  *pgvector.Vector
		processed  sql.NullTime
	)

	err := row.Scan(
		&v.ID,
		&v.UserID,
		&transcript,
		&v.ProcessingStatus,
		&v.MaterialsStatus,
		&incomplete,
		&errorType,
		&errorMsg,
		&embedding,
		&v.Title,
		&v.Category,
		&tags,
		&v.Summary,
		&chapters,
		&processed,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(transcript, &v.Transcript); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	if err := unmarshalJSON(incomplete, &v.IncompleteMaterials); err != nil {
		return nil, fmt.Errorf("failed to decode incomplete materials: %w", err)
	}
	if err := unmarshalJSON(tags, &v.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := unmarshalJSON(chapters, &v.Chapters); err != nil {
		return nil, fmt.Errorf("failed to decode chapters: %w", err)
	}
	if errorType.Valid {
		v.ErrorType = &errorType.String
	}
	if errorMsg.Valid {
		v.ErrorMessage = &errorMsg.String
	}
	if embedding != nil {
		v.Embedding = embedding.Slice()
	}
	if processed.Valid {
		t := processed.Time
		v.ProcessedAt = &t
	}
	return &v, nil
}

// marshalJSONList encodes a nil slice as [] to satisfy NOT NULL columns.
func marshalJSONList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal list: %w", err)
	}
	return b, nil
}

func unmarshalJSON(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

// vectorArg returns nil for an empty embedding so the column stays NULL.
func vectorArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}
