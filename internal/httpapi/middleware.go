package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlationId"
	userIDKey        contextKey = "userId"
	userRoleKey      contextKey = "userRole"
)

// CorrelationMiddleware reads X-Correlation-ID and adds it to context and
// the response, generating one if the caller didn't supply it. This lets a
// single request be traced end to end across the gateway and this service.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		w.Header().Set("X-Correlation-ID", correlationID)

		ctx := context.WithValue(r.Context(), correlationIDKey, correlationID)
		logger := log.With().Str("correlation_id", correlationID).Logger()
		ctx = logger.WithContext(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetCorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(correlationIDKey).(string); ok {
		return v
	}
	return ""
}

// UserContext trusts X-User-ID / X-User-Role, the identity headers the edge
// router injects once it has verified the caller's bearer token. This
// service never re-verifies the token itself; it is never exposed directly
// to clients in a production deployment.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idHeader := r.Header.Get("X-User-ID")
		if idHeader == "" {
			writeError(w, r, http.StatusUnauthorized, "missing user identity")
			return
		}
		uid, err := uuid.Parse(idHeader)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "malformed user identity")
			return
		}
		role := r.Header.Get("X-User-Role")
		ctx := context.WithValue(r.Context(), userIDKey, uid)
		ctx = context.WithValue(ctx, userRoleKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserID(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(userIDKey).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func UserRole(ctx context.Context) string {
	if v, ok := ctx.Value(userRoleKey).(string); ok {
		return v
	}
	return ""
}
