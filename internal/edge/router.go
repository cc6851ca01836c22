// Package edge is the Edge Router: the single ingress that terminates
// client traffic, applies CORS, rate limiting and auth, and proxies to the
// submission API. Pipeline order is fixed by §4.1: CORS, rate limit, auth,
// route.
package edge

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zimage/orchestrator/internal/auth"
	"github.com/zimage/orchestrator/internal/config"
	"github.com/zimage/orchestrator/internal/kv"
	"github.com/zimage/orchestrator/internal/metrics"
)

func NewRouter(signer *auth.Signer, cache *kv.Adapter, edgeCfg config.Edge, rlCfg config.RateLimit) (http.Handler, error) {
	proxy, err := NewProxy(edgeCfg)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   edgeCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"*"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
	}))

	r.Use(RateLimit(cache, rlCfg))
	r.Use(Auth(signer))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.HandleFunc("/v1/*", metrics.Instrument("/v1/*", http.HandlerFunc(proxy.Route)))

	log.Info().Msg("edge router routes registered")
	return r, nil
}
