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

type generateReq struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	NumImages      int    `json:"num_images"`
	Seed           *int64 `json:"seed"`
}

type submitAck struct {
	TaskID        string  `json:"task_id"`
	Status        string  `json:"status"`
	EstimatedTime float64 `json:"estimated_time"`
}

func validDimension(v int) bool {
	return v >= 256 && v <= 2048 && v%8 == 0
}

// SubmitGenerate validates the request, persists a pending GenerationTask,
// enqueues it, and returns immediately. See §4.3 — the API never blocks on
// the worker.
func (s *Server) SubmitGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldError(w, r, "body", "malformed request body")
		return
	}
	if req.Prompt == "" {
		writeFieldError(w, r, "prompt", "prompt is required")
		return
	}
	if !validDimension(req.Width) || !validDimension(req.Height) {
		writeFieldError(w, r, "dimensions", "width/height must be multiples of 8 in [256,2048]")
		return
	}
	if req.NumImages < 1 || req.NumImages > 4 {
		writeFieldError(w, r, "num_images", "num_images must be in [1,4]")
		return
	}
	if req.Seed != nil && (*req.Seed < 0 || *req.Seed >= (1<<31)) {
		writeFieldError(w, r, "seed", "seed must be in [0, 2^31)")
		return
	}

	task := &models.GenerationTask{
		ID:             uuid.New(),
		UserID:         UserID(r.Context()),
		Status:         models.StatusPending,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          req.Width,
		Height:         req.Height,
		NumImages:      req.NumImages,
		Seed:           req.Seed,
		CreatedAt:      time.Now(),
	}
	if err := s.Store.CreateGenerationTask(r.Context(), task); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to create task")
		return
	}

	kwargs := map[string]any{
		"user_id":         task.UserID.String(),
		"prompt":          task.Prompt,
		"negative_prompt": task.NegativePrompt,
		"width":           task.Width,
		"height":          task.Height,
		"num_images":      task.NumImages,
		"seed":            task.Seed,
	}
	handle, err := s.Queue.Enqueue(r.Context(), models.KindGenerate, task.ID.String(), kwargs)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to enqueue task")
		return
	}
	if err := s.Store.SetGenerationQueueHandle(r.Context(), task.ID, handle); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to record queue handle")
		return
	}

	writeJSON(w, http.StatusAccepted, submitAck{
		TaskID:        task.ID.String(),
		Status:        string(models.StatusPending),
		EstimatedTime: estimatedGenerateSeconds(task.Width, task.Height, task.NumImages),
	})
}

type taskStatusResp struct {
	TaskID           string          `json:"task_id"`
	Status           string          `json:"status"`
	Progress         int             `json:"progress"`
	ProgressMessage  string          `json:"progress_message"`
	ElapsedSeconds   float64         `json:"elapsed_seconds"`
	EstimatedSeconds float64         `json:"estimated_seconds"`
	Images           []models.Image  `json:"images,omitempty"`
	Error            string          `json:"error,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	StartedAt        *time.Time      `json:"started_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

// GetGenerationStatus is the Status Reconciler's entry point for
// text-to-image tasks. See §4.5.
func (s *Server) GetGenerationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "task not found")
		return
	}

	task, err := s.Store.GetGenerationTask(r.Context(), id)
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

	estimated := estimatedGenerateSeconds(task.Width, task.Height, task.NumImages)
	var images []models.Image
	if !task.Status.Terminal() {
		task, images, err = s.reconcileGeneration(r.Context(), task)
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
