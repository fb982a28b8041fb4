package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/scry-materials/internal/api/shared"
	"github.com/phrazzld/scry-materials/internal/domain"
	"github.com/phrazzld/scry-materials/internal/events"
	"github.com/phrazzld/scry-materials/internal/platform/logger"
	"github.com/phrazzld/scry-materials/internal/store"
)

// VideoIDParam is the chi URL parameter naming a video.
const VideoIDParam = "videoID"

// VideoHandler handles video registration and generation requests.
type VideoHandler struct {
	videos  store.VideoStore
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(videos store.VideoStore, emitter events.EventEmitter, logger *slog.Logger) *VideoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoHandler{
		videos:  videos,
		emitter: emitter,
		logger:  logger.With("component", "video_handler"),
	}
}

// CreateVideo handles POST /internal/videos. The video is stored as pending
// and a generation request is emitted. A failed emit still answers 202: the
// pending video is picked up when the task runner next recovers.
func (h *VideoHandler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateVideoRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Validation error", err)
		return
	}

	video, err := domain.NewVideo(req.ID, uuid.MustParse(req.UserID), req.transcript())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := h.videos.Create(r.Context(), video); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	log.Info("video registered", "video_id", video.ID, "segments", len(video.Transcript))

	eventID, err := h.emit(r, video.ID)
	if err != nil {
		log.Warn("generation request not queued, waiting for recovery",
			"video_id", video.ID,
			"error", err)
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, GenerationAcceptedResponse{
		VideoID: video.ID,
		EventID: eventID,
		Status:  string(video.ProcessingStatus),
	})
}

// GetVideo handles GET /internal/videos/{videoID}.
func (h *VideoHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	video, err := h.videos.GetByID(r.Context(), chi.URLParam(r, VideoIDParam))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, videoToResponse(video))
}

// RequestMaterials handles POST /internal/videos/{videoID}/materials. It
// re-emits the generation request for a video that is still pending or
// processing. Videos past first-pass generation belong to the retry
// coordinator and are refused with 409.
func (h *VideoHandler) RequestMaterials(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, VideoIDParam)

	video, err := h.videos.GetByID(r.Context(), videoID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if video.ProcessingStatus != domain.StatusPending && video.ProcessingStatus != domain.StatusProcessing {
		HandleAPIError(w, r, ErrVideoNotPending, "")
		return
	}

	eventID, err := h.emit(r, videoID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, GenerationAcceptedResponse{
		VideoID: videoID,
		EventID: eventID,
		Status:  string(video.ProcessingStatus),
	})
}

func (h *VideoHandler) emit(r *http.Request, videoID string) (string, error) {
	event, err := events.NewMaterialsGenerationEvent(videoID)
	if err != nil {
		return "", err
	}
	if err := h.emitter.EmitEvent(r.Context(), event); err != nil {
		return "", err
	}
	return event.ID.String(), nil
}
