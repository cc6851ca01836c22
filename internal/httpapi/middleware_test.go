package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestCorrelationMiddleware_GeneratesIDWhenAbsent(t *testing.T) {
	var captured string
	handler := CorrelationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured == "" {
		t.Fatal("expected a generated correlation id")
	}
	if rec.Header().Get("X-Correlation-ID") != captured {
		t.Errorf("expected response header to echo the correlation id used in context")
	}
}

func TestCorrelationMiddleware_PreservesCallerSuppliedID(t *testing.T) {
	var captured string
	handler := CorrelationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "caller-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured != "caller-supplied-id" {
		t.Errorf("expected caller-supplied id to be preserved, got %q", captured)
	}
}

func TestUserContext_MissingHeaderRejected(t *testing.T) {
	handler := UserContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached without identity header")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestUserContext_MalformedHeaderRejected(t *testing.T) {
	handler := UserContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached with malformed identity header")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "not-a-uuid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestUserContext_AttachesIdentity(t *testing.T) {
	uid := uuid.New()
	var gotID uuid.UUID
	var gotRole string
	handler := UserContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = UserID(r.Context())
		gotRole = UserRole(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", uid.String())
	req.Header.Set("X-User-Role", "admin")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected handler to run, got status %d", rec.Code)
	}
	if gotID != uid {
		t.Errorf("UserID = %v, want %v", gotID, uid)
	}
	if gotRole != "admin" {
		t.Errorf("UserRole = %q, want admin", gotRole)
	}
}
