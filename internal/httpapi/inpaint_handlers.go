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

type inpaintReq struct {
	OriginalImageID string  `json:"original_image_id"`
	Prompt          string  `json:"prompt"`
	NegativePrompt  string  `json:"negative_prompt"`
	MaskBase64      string  `json:"mask_base64"`
	Strength        float64 `json:"strength"`
	GuidanceScale   float64 `json:"guidance_scale"`
	Steps           int     `json:"steps"`
	Seed            *int64  `json:"seed"`
}

// SubmitInpaint validates and persists a masked-edit job. Defaults per §3:
// strength 0.85, guidance_scale 7.5, steps 30.
func (s *Server) SubmitInpaint(w http.ResponseWriter, r *http.Request) {
	req := inpaintReq{Strength: 0.85, GuidanceScale: 7.5, Steps: 30}
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
	if req.Prompt == "" {
		writeFieldError(w, r, "prompt", "prompt is required")
		return
	}
	if req.MaskBase64 == "" {
		writeFieldError(w, r, "mask_base64", "mask is required")
		return
	}
	if req.Strength < 0 || req.Strength > 1 {
		writeFieldError(w, r, "strength", "strength must be in [0,1]")
		return
	}
	if req.GuidanceScale < 1 || req.GuidanceScale > 20 {
		writeFieldError(w, r, "guidance_scale", "guidance_scale must be in [1,20]")
		return
	}
	if req.Steps < 10 || req.Steps > 100 {
		writeFieldError(w, r, "steps", "steps must be in [10,100]")
		return
	}

	task := &models.InpaintTask{
		ID:              uuid.New(),
		UserID:          UserID(r.Context()),
		Status:          models.StatusPending,
		OriginalImageID: imageID,
		Prompt:          req.Prompt,
		NegativePrompt:  req.NegativePrompt,
		Strength:        req.Strength,
		GuidanceScale:   req.GuidanceScale,
		Steps:           req.Steps,
		Seed:            req.Seed,
		CreatedAt:       time.Now(),
	}
	if err := s.Store.CreateInpaintTask(r.Context(), task); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to create task")
		return
	}

	kwargs := map[string]any{
		"user_id":           task.UserID.String(),
		"original_image_id": task.OriginalImageID.String(),
		"original_image_url": original.URL,
		"mask_base64":       req.MaskBase64,
		"prompt":            task.Prompt,
		"negative_prompt":   task.NegativePrompt,
		"strength":          task.Strength,
		"guidance_scale":    task.GuidanceScale,
		"steps":             task.Steps,
		"seed":              task.Seed,
	}
	handle, err := s.Queue.Enqueue(r.Context(), models.KindInpaint, task.ID.String(), kwargs)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to enqueue task")
		return
	}
	if err := s.Store.SetInpaintQueueHandle(r.Context(), task.ID, handle); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to record queue handle")
		return
	}

	writeJSON(w, http.StatusAccepted, submitAck{
		TaskID:        task.ID.String(),
		Status:        string(models.StatusPending),
		EstimatedTime: estimatedInpaintSeconds(),
	})
}

// GetInpaintStatus is the reconciler entry point for inpaint tasks.
func (s *Server) GetInpaintStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "task not found")
		return
	}

	task, err := s.Store.GetInpaintTask(r.Context(), id)
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

	estimated := estimatedInpaintSeconds()
	var images []models.Image
	if !task.Status.Terminal() {
		task, images, err = s.reconcileInpaint(r.Context(), task)
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
