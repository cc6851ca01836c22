package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zimage/orchestrator/internal/models"
	"github.com/zimage/orchestrator/internal/store"
)

type galleryPage struct {
	Images []models.Image `json:"images"`
	Total  int            `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

func (s *Server) ListGallery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parsePage(q.Get("page"))
	limit := parseLimit(q.Get("limit"), 20, 100)
	favoritesOnly := q.Get("favorites_only") == "true"
	search := q.Get("search")

	images, total, err := s.Store.ListGallery(r.Context(), UserID(r.Context()), page, limit, favoritesOnly, search)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, galleryPage{Images: images, Total: total, Page: page, Limit: limit})
}

func (s *Server) FavoriteImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "image not found")
		return
	}
	if err := s.Store.SetFavorite(r.Context(), UserID(r.Context()), id, true); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "image not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "update failed")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "image not found")
		return
	}
	if err := s.Store.DeleteImage(r.Context(), UserID(r.Context()), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "image not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
