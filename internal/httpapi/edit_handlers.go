package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zimage/orchestrator/internal/models"
	"github.com/zimage/orchestrator/internal/store"
)

const (
	samPointKind              = models.KindSAMPoint
	samBoxKind                = models.KindSAMBox
	samAutoKind               = models.KindSAMAuto
	backgroundRemoveKind      = models.KindBackgroundRemove
	backgroundReplaceImgKind  = models.KindBackgroundReplaceImg
	backgroundReplaceColKind  = models.KindBackgroundReplaceCol
	backgroundMaskKind        = models.KindBackgroundMask
	styleApplyKind            = models.KindStyleApply
)

// editReq is the shared envelope for segmentation, background and style
// submissions: an original image plus a typed params bag whose shape
// varies by kind (point/box coordinates, replacement color, style preset
// name, and so on). The worker owns interpreting Params for its kind.
type editReq struct {
	OriginalImageID string          `json:"original_image_id"`
	Params          json.RawMessage `json:"params"`
}

func estimateForKind(kind models.TaskKind) float64 {
	switch kind {
	case samPointKind, samBoxKind, samAutoKind:
		return estimatedSegmentSeconds(kind)
	case styleApplyKind:
		return estimatedStyleSeconds()
	default:
		return estimatedBackgroundSeconds(kind)
	}
}

// editHandler returns a submission handler closed over kind, since the
// sam/background/style routes share one validation and persistence shape.
func (s *Server) editHandler(kind models.TaskKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFieldError(w, r, "body", "malformed request body")
			return
		}

		imageID, err := uuid.Parse(req.OriginalImageID)
		if err != nil {
			writeFieldError(w, r, "original_image_id", "invalid image id")
			return
		}
		original, err := s.Store.GetImage(r.Context(), imageID)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "original image not found")
			return
		}
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "lookup failed")
			return
		}
		if original.OwnerID != UserID(r.Context()) {
			writeError(w, r, http.StatusNotFound, "original image not found")
			return
		}
		if len(req.Params) == 0 {
			req.Params = json.RawMessage(`{}`)
		}

		task := &models.EditTask{
			ID:              uuid.New(),
			UserID:          UserID(r.Context()),
			Kind:            kind,
			Status:          models.StatusPending,
			OriginalImageID: imageID,
			Params:          req.Params,
			CreatedAt:       time.Now(),
		}
		if err := s.Store.CreateEditTask(r.Context(), task); err != nil {
			writeError(w, r, http.StatusInternalServerError, "failed to create task")
			return
		}

		kwargs := map[string]any{
			"user_id":            task.UserID.String(),
			"original_image_id":  task.OriginalImageID.String(),
			"original_image_url": original.URL,
			"params":             json.RawMessage(task.Params),
		}
		handle, err := s.Queue.Enqueue(r.Context(), kind, task.ID.String(), kwargs)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "failed to enqueue task")
			return
		}
		if err := s.Store.SetEditTaskQueueHandle(r.Context(), task.ID, handle); err != nil {
			writeError(w, r, http.StatusInternalServerError, "failed to record queue handle")
			return
		}

		writeJSON(w, http.StatusAccepted, submitAck{
			TaskID:        task.ID.String(),
			Status:        string(models.StatusPending),
			EstimatedTime: estimateForKind(kind),
		})
	}
}

// GetEditTaskStatus is the reconciler entry point shared by every
// EditTask-backed kind (segmentation, background, style).
func (s *Server) GetEditTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "task not found")
		return
	}

	task, err := s.Store.GetEditTask(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "lookup failed")
		return
	}
	if task.UserID != UserID(r.Context()) {
		writeError(w, r, http.StatusNotFound, "task not found")
		return
	}

	estimated := estimateForKind(task.Kind)
	var images []models.Image
	if !task.Status.Terminal() {
		task, images, err = s.reconcileEditTask(r.Context(), task)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "reconciliation failed")
			return
		}
	}

	resp := renderTaskStatus(task.Status, task.CreatedAt, task.StartedAt, task.CompletedAt, estimated, task.Error)
	resp.TaskID = task.ID.String()
	if task.Status == models.StatusCompleted && images == nil && len(task.Result) > 0 {
		images = s.imagesForTask(r.Context(), task.ID)
	}
	resp.Images = images
	writeJSON(w, http.StatusOK, resp)
}

type stylePreset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StylePresets returns the closed enumeration of style-transfer presets.
// This is a static list: new presets ship with a worker pipeline update,
// not a runtime registration call.
func (s *Server) StylePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []stylePreset{
		{ID: "anime", Name: "Anime"},
		{ID: "oil_painting", Name: "Oil Painting"},
		{ID: "watercolor", Name: "Watercolor"},
		{ID: "cyberpunk", Name: "Cyberpunk"},
		{ID: "sketch", Name: "Pencil Sketch"},
	})
}
