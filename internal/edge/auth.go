package edge

import (
	"context"
	"net/http"
	"strings"

	"github.com/zimage/orchestrator/internal/auth"
)

type identityKey string

const ctxIdentity identityKey = "edgeIdentity"

// Identity is the verified caller attached to context once the bearer
// token passes signature and expiry checks.
type Identity struct {
	UserID string
	Role   string
}

// publicPrefixes never require a bearer token, per §4.1.
var publicPrefixes = []string{
	"/",
	"/health",
	"/metrics",
	"/docs",
	"/v1/auth/login",
	"/v1/auth/register",
	"/v1/auth/refresh",
}

func isPublic(path string) bool {
	if path == "/" {
		return true
	}
	for _, p := range publicPrefixes {
		if p != "/" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Auth verifies the bearer token on every non-public path and attaches the
// resolved identity to context. Any failure is a 401 and the request never
// reaches the proxy — per testable property 5, the upstream is never
// contacted on a rejected request.
func Auth(signer *auth.Signer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			token := strings.TrimPrefix(header, prefix)

			claims, err := signer.Verify(token, auth.KindAccess)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxIdentity, Identity{
				UserID: claims.Subject.String(),
				Role:   claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func identityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(Identity)
	return id, ok
}
