package edge

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zimage/orchestrator/internal/config"
	"github.com/zimage/orchestrator/internal/kv"
)

// clientIdentity is the forwarded-for first hop if present, else the peer
// address, per §4.1.
func clientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i, c := range fwd {
			if c == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit enforces at most N requests per window per client identity,
// backed by the shared KV cache so it stays correct across multiple
// gateway instances — the redesign note in §9 moves this off in-process
// state. The window is fixed, not sliding: it starts at the client's first
// counted request and the counter resets when its TTL expires, so up to 2N
// requests can pass within one window length that straddles a reset.
func RateLimit(cache *kv.Adapter, cfg config.RateLimit) func(http.Handler) http.Handler {
	window := time.Duration(cfg.WindowSeconds) * time.Second

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" || r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			key := "ratelimit:" + clientIdentity(r)
			count, err := cache.Incr(r.Context(), key, window)
			if err != nil {
				log.Error().Err(err).Msg("rate limit counter failed, failing open")
				next.ServeHTTP(w, r)
				return
			}

			remaining := cfg.Limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			ttl, err := cache.TTL(r.Context(), key)
			if err != nil || ttl < 0 {
				ttl = window
			}
			reset := time.Now().Add(ttl).Unix()

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

			if int(count) > cfg.Limit {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(ttl.Seconds()), 10))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
