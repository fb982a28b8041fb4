package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus represents where a video is in the generation lifecycle.
type ProcessingStatus string

// Possible processing status values
const (
	StatusPending              ProcessingStatus = "pending"
	StatusProcessing           ProcessingStatus = "processing"
	StatusCompleted            ProcessingStatus = "completed"
	StatusCompletedWithWarning ProcessingStatus = "completed_with_warning"
	StatusFailed               ProcessingStatus = "failed"
)

// MaterialsStatus tells whether every artifact kind has been stored.
type MaterialsStatus string

// Possible materials status values
const (
	MaterialsComplete   MaterialsStatus = "complete"
	MaterialsIncomplete MaterialsStatus = "incomplete"
)

// DefaultEmbeddingDimensions is the length of stored embedding vectors.
const DefaultEmbeddingDimensions = 1536

// Validation errors for Video
var (
	ErrEmptyVideoID          = errors.New("video ID cannot be empty")
	ErrEmptyVideoUserID      = errors.New("video user ID cannot be empty")
	ErrInconsistentStatus    = errors.New("materials status inconsistent with processing status")
	ErrInvalidIncompleteKind = errors.New("incomplete materials contains an unknown kind")
)

// Video is one materials-generation job: a transcript owned by a user, plus
// the state of the learning materials generated from it.
type Video struct {
	ID     string    `json:"id"`
	UserID uuid.UUID `json:"userId"`

	Transcript Transcript `json:"transcript"`

	ProcessingStatus    ProcessingStatus `json:"processingStatus"`
	MaterialsStatus     MaterialsStatus  `json:"materialsStatus"`
	IncompleteMaterials []ArtifactKind   `json:"incompleteMaterials"`

	// ErrorType is the persisted name of the last classified failure kind.
	ErrorType    *string `json:"errorType,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`

	Embedding []float32 `json:"-"`

	Title    string    `json:"title"`
	Category string    `json:"category"`
	Tags     []string  `json:"tags"`
	Summary  string    `json:"summary"`
	Chapters []Chapter `json:"chapters"`

	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewVideo creates a pending video for the given owner and transcript.
func NewVideo(id string, userID uuid.UUID, transcript Transcript) (*Video, error) {
	now := time.Now().UTC()
	v := &Video{
		ID:                  id,
		UserID:              userID,
		Transcript:          transcript,
		ProcessingStatus:    StatusPending,
		MaterialsStatus:     MaterialsIncomplete,
		IncompleteMaterials: append([]ArtifactKind(nil), AllArtifactKinds...),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := v.Validate(); err != nil {
		return nil, err
	}

	return v, nil
}

// Validate checks if the Video has valid data.
func (v *Video) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return ErrEmptyVideoID
	}

	if v.UserID == uuid.Nil {
		return ErrEmptyVideoUserID
	}

	if !v.ProcessingStatus.IsValid() {
		return ErrInvalidProcessingStatus
	}

	if !v.MaterialsStatus.IsValid() {
		return ErrInvalidMaterialsStatus
	}

	for _, k := range v.IncompleteMaterials {
		if !k.IsValid() {
			return ErrInvalidIncompleteKind
		}
	}

	// materialsStatus=complete holds exactly when the video is completed
	// with nothing left to generate.
	switch v.ProcessingStatus {
	case StatusCompleted:
		if v.MaterialsStatus != MaterialsComplete || len(v.IncompleteMaterials) > 0 {
			return ErrInconsistentStatus
		}
	default:
		if v.MaterialsStatus == MaterialsComplete {
			return ErrInconsistentStatus
		}
	}

	return nil
}

// CanTransition reports whether the video may move to the given status.
// Failed is terminal.
func (v *Video) CanTransition(to ProcessingStatus) bool {
	if !to.IsValid() {
		return false
	}
	return v.ProcessingStatus != StatusFailed
}

// IsRetryable reports whether the retry coordinator should pick this video up.
func (v *Video) IsRetryable() bool {
	return v.ProcessingStatus == StatusCompletedWithWarning
}

// HasEmbedding reports whether an embedding vector is stored.
func (v *Video) HasEmbedding() bool {
	return len(v.Embedding) > 0
}

// LastErrorType returns the stored error type or "" if none.
func (v *Video) LastErrorType() string {
	if v.ErrorType == nil {
		return ""
	}
	return *v.ErrorType
}

// Metadata returns the metadata fields currently stored on the video, or nil
// when no title has been written yet.
func (v *Video) Metadata() *Metadata {
	if v.Title == "" {
		return nil
	}
	return &Metadata{
		Title:    v.Title,
		Category: v.Category,
		Tags:     v.Tags,
		Summary:  v.Summary,
		Chapters: v.Chapters,
	}
}

// EmbeddingText builds the text that is embedded for similarity search.
// Metadata is preferred; the transcript is used as a fallback and is
// truncated to maxRunes.
func EmbeddingText(meta *Metadata, transcript Transcript, maxRunes int) string {
	var parts []string
	if meta != nil {
		parts = append(parts, meta.Title, meta.Category, strings.Join(meta.Tags, ", "), meta.Summary)
	}
	text := strings.TrimSpace(strings.Join(nonEmpty(parts), "\n"))
	if text == "" {
		text = transcript.Text()
	}
	if maxRunes > 0 {
		r := []rune(text)
		if len(r) > maxRunes {
			text = string(r[:maxRunes])
		}
	}
	return text
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsValid checks if the status is a known ProcessingStatus.
func (s ProcessingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted,
		StatusCompletedWithWarning, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further processing happens from this status.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusFailed
}

// IsValid checks if the status is a known MaterialsStatus.
func (s MaterialsStatus) IsValid() bool {
	return s == MaterialsComplete || s == MaterialsIncomplete
}
