package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-materials/internal/domain"
)

// TranscriptSegmentRequest is one timed transcript line.
type TranscriptSegmentRequest struct {
	Text     string  `json:"text"     validate:"required"`
	Start    float64 `json:"start"    validate:"gte=0"`
	Duration float64 `json:"duration" validate:"gte=0"`
}

// CreateVideoRequest defines the payload for registering a video for
// materials generation.
type CreateVideoRequest struct {
	ID         string                     `json:"id"         validate:"required,max=128"`
	UserID     string                     `json:"user_id"    validate:"required,uuid"`
	Transcript []TranscriptSegmentRequest `json:"transcript" validate:"required,min=1,dive"`
}

func (r CreateVideoRequest) transcript() domain.Transcript {
	t := make(domain.Transcript, len(r.Transcript))
	for i, seg := range r.Transcript {
		t[i] = domain.TranscriptSegment{Text: seg.Text, Start: seg.Start, Duration: seg.Duration}
	}
	return t
}

// VideoResponse reports the generation state of a video.
type VideoResponse struct {
	ID                  string     `json:"id"`
	UserID              uuid.UUID  `json:"user_id"`
	ProcessingStatus    string     `json:"processing_status"`
	MaterialsStatus     string     `json:"materials_status"`
	IncompleteMaterials []string   `json:"incomplete_materials"`
	ErrorType           *string    `json:"error_type,omitempty"`
	ErrorMessage        *string    `json:"error_message,omitempty"`
	Title               string     `json:"title,omitempty"`
	HasEmbedding        bool       `json:"has_embedding"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func videoToResponse(v *domain.Video) VideoResponse {
	incomplete := make([]string, len(v.IncompleteMaterials))
	for i, k := range v.IncompleteMaterials {
		incomplete[i] = string(k)
	}
	return VideoResponse{
		ID:                  v.ID,
		UserID:              v.UserID,
		ProcessingStatus:    string(v.ProcessingStatus),
		MaterialsStatus:     string(v.MaterialsStatus),
		IncompleteMaterials: incomplete,
		ErrorType:           v.ErrorType,
		ErrorMessage:        v.ErrorMessage,
		Title:               v.Title,
		HasEmbedding:        v.HasEmbedding(),
		ProcessedAt:         v.ProcessedAt,
		CreatedAt:           v.CreatedAt,
		UpdatedAt:           v.UpdatedAt,
	}
}

// GenerationAcceptedResponse acknowledges a queued generation request.
type GenerationAcceptedResponse struct {
	VideoID string `json:"video_id"`
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}
