package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/scry-materials/internal/domain"
)

// VideoUpdate is a partial update of a video record. Nil fields are left
// untouched.
type VideoUpdate struct {
	ProcessingStatus    *domain.ProcessingStatus
	MaterialsStatus     *domain.MaterialsStatus
	IncompleteMaterials *[]domain.ArtifactKind

	ErrorType    *string
	ErrorMessage *string
	// ClearError sets both error fields to NULL. It takes precedence over
	// ErrorType and ErrorMessage.
	ClearError bool

	Embedding   []float32
	ProcessedAt *time.Time

	// Metadata overwrites title, category, tags, summary and chapters.
	Metadata *domain.Metadata
}

// IsEmpty reports whether the update changes nothing.
func (u VideoUpdate) IsEmpty() bool {
	return u.ProcessingStatus == nil &&
		u.MaterialsStatus == nil &&
		u.IncompleteMaterials == nil &&
		u.ErrorType == nil &&
		u.ErrorMessage == nil &&
		!u.ClearError &&
		u.Embedding == nil &&
		u.ProcessedAt == nil &&
		u.Metadata == nil
}

// Apply copies the update onto v. Stores use it to keep in-memory copies in
// step with what was persisted.
func (u VideoUpdate) Apply(v *domain.Video) {
	if u.ProcessingStatus != nil {
		v.ProcessingStatus = *u.ProcessingStatus
	}
	if u.MaterialsStatus != nil {
		v.MaterialsStatus = *u.MaterialsStatus
	}
	if u.IncompleteMaterials != nil {
		v.IncompleteMaterials = append([]domain.ArtifactKind{}, (*u.IncompleteMaterials)...)
	}
	if u.ClearError {
		v.ErrorType = nil
		v.ErrorMessage = nil
	} else {
		if u.ErrorType != nil {
			s := *u.ErrorType
			v.ErrorType = &s
		}
		if u.ErrorMessage != nil {
			s := *u.ErrorMessage
			v.ErrorMessage = &s
		}
	}
	if u.Embedding != nil {
		v.Embedding = append([]float32(nil), u.Embedding...)
	}
	if u.ProcessedAt != nil {
		t := *u.ProcessedAt
		v.ProcessedAt = &t
	}
	if u.Metadata != nil {
		v.Title = u.Metadata.Title
		v.Category = u.Metadata.Category
		v.Tags = append([]string(nil), u.Metadata.Tags...)
		v.Summary = u.Metadata.Summary
		v.Chapters = append([]domain.Chapter(nil), u.Metadata.Chapters...)
	}
}

// VideoStore defines the interface for video job persistence.
// Version: 1.0
type VideoStore interface {
	// Create saves a new video to the store.
	// Returns ErrVideoExists if a video with the same ID already exists.
	Create(ctx context.Context, video *domain.Video) error

	// GetByID retrieves a video by its ID.
	// Returns ErrVideoNotFound if the video does not exist.
	GetByID(ctx context.Context, id string) (*domain.Video, error)

	// FindByProcessingStatus retrieves videos with the given status, oldest
	// update first. A limit of zero or less means no limit.
	FindByProcessingStatus(ctx context.Context, status domain.ProcessingStatus, limit int) ([]*domain.Video, error)

	// FindStaleProcessing retrieves videos that have been in the processing
	// state for longer than olderThan.
	FindStaleProcessing(ctx context.Context, olderThan time.Duration) ([]*domain.Video, error)

	// Update applies a partial update and bumps updated_at.
	// Returns ErrVideoNotFound if the video does not exist.
	Update(ctx context.Context, id string, update VideoUpdate) error

	// WithTx returns a new VideoStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) VideoStore
}
