// Package httpapi is the Submission API and Status Reconciler: request
// validation, task persistence, enqueue, and the poll-driven read path that
// promotes a task to its terminal state and materializes its Image and
// EditHistory rows exactly once.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/zimage/orchestrator/internal/auth"
	"github.com/zimage/orchestrator/internal/config"
	"github.com/zimage/orchestrator/internal/kv"
	"github.com/zimage/orchestrator/internal/metrics"
	"github.com/zimage/orchestrator/internal/objectstore"
	"github.com/zimage/orchestrator/internal/queue"
	"github.com/zimage/orchestrator/internal/replay"
	"github.com/zimage/orchestrator/internal/store"
)

// Server holds every dependency the submission API and reconciler need.
type Server struct {
	Store   *store.Store
	Queue   *queue.Adapter
	Objects *objectstore.Adapter
	KV      *kv.Adapter
	Signer  *auth.Signer
	Auth    config.Auth
	Replay  *replay.Engine
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

type errorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

func writeError(w http.ResponseWriter, r *http.Request, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{
		Error:         message,
		CorrelationID: GetCorrelationID(r.Context()),
	})
}

func writeFieldError(w http.ResponseWriter, r *http.Request, field, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(errorResponse{
		Error:         message,
		Code:          "invalid_" + field,
		CorrelationID: GetCorrelationID(r.Context()),
	})
}

func parseLimit(q string, def, max int) int {
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func parsePage(q string) int {
	if q == "" {
		return 1
	}
	n, err := strconv.Atoi(q)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Routes wires the submission API surface. Every route here is reached
// through `/api/v1` once proxied by the edge router; the auth endpoints
// additionally sit on the edge router's public-path allowlist.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.ChiMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.Register)
		r.Post("/auth/login", s.Login)
		r.Post("/auth/refresh", s.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(UserContext)

			r.Get("/auth/me", s.Me)

			r.Post("/images/generate", s.SubmitGenerate)
			r.Get("/tasks/{id}", s.GetGenerationStatus)

			r.Post("/images/inpaint", s.SubmitInpaint)
			r.Get("/images/inpaint/tasks/{id}", s.GetInpaintStatus)

			r.Post("/images/sam/segment-point", s.editHandler(samPointKind))
			r.Post("/images/sam/segment-box", s.editHandler(samBoxKind))
			r.Post("/images/sam/segment-auto", s.editHandler(samAutoKind))
			r.Post("/images/background/remove", s.editHandler(backgroundRemoveKind))
			r.Post("/images/background/replace-image", s.editHandler(backgroundReplaceImgKind))
			r.Post("/images/background/replace-color", s.editHandler(backgroundReplaceColKind))
			r.Post("/images/background/mask", s.editHandler(backgroundMaskKind))
			r.Post("/images/style/apply", s.editHandler(styleApplyKind))
			r.Get("/images/edit-tasks/{id}", s.GetEditTaskStatus)
			r.Get("/images/style/presets", s.StylePresets)

			r.Get("/gallery/", s.ListGallery)
			r.Post("/gallery/{id}/favorite", s.FavoriteImage)
			r.Delete("/gallery/{id}", s.DeleteImage)

			r.Get("/images/edit-history", s.ListEditHistory)
			r.Post("/images/edit-history/{id}/replay", s.ReplayEditHistory)

			r.Get("/stats/gpu", s.GPUStats)
		})
	})

	log.Info().Msg("submission API routes registered")
	return r
}
