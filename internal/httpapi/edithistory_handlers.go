package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zimage/orchestrator/internal/models"
	"github.com/zimage/orchestrator/internal/replay"
	"github.com/zimage/orchestrator/internal/store"
)

func (s *Server) ListEditHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parsePage(q.Get("page"))
	limit := parseLimit(q.Get("limit"), 20, 100)

	history, err := s.Store.ListEditHistory(r.Context(), UserID(r.Context()), page, limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		History []models.EditHistory `json:"history"`
		Page    int                  `json:"page"`
		Limit   int                  `json:"limit"`
	}{History: history, Page: page, Limit: limit})
}

type replayReq struct {
	TargetImageID string `json:"target_image_id"`
}

// ReplayEditHistory re-issues a historical edit against a new target image.
// See §4.6 and testable property 6 (replay fidelity).
func (s *Server) ReplayEditHistory(w http.ResponseWriter, r *http.Request) {
	historyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "history entry not found")
		return
	}

	var req replayReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldError(w, r, "body", "malformed request body")
		return
	}
	targetID, err := uuid.Parse(req.TargetImageID)
	if err != nil {
		writeFieldError(w, r, "target_image_id", "invalid image id")
		return
	}

	task, err := s.Replay.Replay(r.Context(), UserID(r.Context()), historyID, targetID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "history entry or target image not found")
		return
	case errors.Is(err, replay.ErrForbidden):
		writeError(w, r, http.StatusNotFound, "history entry or target image not found")
		return
	case errors.Is(err, replay.ErrNoMask):
		writeError(w, r, http.StatusBadRequest, "edit history has no stored mask to replay")
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "replay failed")
		return
	}

	writeJSON(w, http.StatusAccepted, submitAck{
		TaskID:        task.ID.String(),
		Status:        string(models.StatusPending),
		EstimatedTime: estimatedInpaintSeconds(),
	})
}
