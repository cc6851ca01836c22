package edge

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zimage/orchestrator/internal/config"
)

// knownServices is the path-prefix routing table of §4.1. Every entry in
// this system's scope lives behind the one submission-API upstream; the
// table still exists as a list (rather than a single constant) so a second
// backend can be introduced without touching the proxy itself.
var knownServices = []string{
	"auth", "images", "tasks", "gallery", "stats",
}

func serviceOf(path string) (string, bool) {
	trimmed := strings.TrimPrefix(path, "/v1/")
	for _, svc := range knownServices {
		if trimmed == svc || strings.HasPrefix(trimmed, svc+"/") {
			return svc, true
		}
	}
	return "", false
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Proxy streams requests under /v1/<service>/... to the upstream
// submission API at /api/v1/<service>/..., injecting the caller's verified
// identity as X-User-ID / X-User-Role and stripping Host. Connect failures
// map to 503, read timeouts to 504, everything else to 500.
type Proxy struct {
	target    *url.URL
	rp        *httputil.ReverseProxy
	timeout   time.Duration
}

func NewProxy(cfg config.Edge) (*Proxy, error) {
	target, err := url.Parse(cfg.UpstreamBaseURL)
	if err != nil {
		return nil, err
	}

	p := &Proxy{target: target, timeout: cfg.UpstreamTimeout}
	rp := &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.URL.Scheme = target.Scheme
			req.URL.Host = target.Host
			req.URL.Path = "/api" + req.URL.Path
			req.Host = target.Host

			if id, ok := identityFromContext(req.Context()); ok {
				req.Header.Set("X-User-ID", id.UserID)
				req.Header.Set("X-User-Role", id.Role)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("upstream proxy error")
			var netErr net.Error
			if nErr, ok := err.(net.Error); ok {
				netErr = nErr
			}
			switch {
			case netErr != nil && netErr.Timeout():
				writeError(w, http.StatusGatewayTimeout, "upstream timeout")
			case isConnRefused(err):
				writeError(w, http.StatusServiceUnavailable, "upstream unavailable")
			default:
				writeError(w, http.StatusInternalServerError, "upstream error")
			}
		},
	}
	p.rp = rp
	return p, nil
}

func isConnRefused(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "no such host") ||
		err == io.ErrUnexpectedEOF
}

// Route matches path against the known-service table and, on a hit,
// proxies with a bounded context so a stalled upstream is aborted at the
// 30s contract instead of hanging the client forever.
func (p *Proxy) Route(w http.ResponseWriter, r *http.Request) {
	if _, ok := serviceOf(r.URL.Path); !ok {
		writeError(w, http.StatusNotFound, "no route for path")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()

	p.rp.ServeHTTP(w, r.WithContext(ctx))
}
