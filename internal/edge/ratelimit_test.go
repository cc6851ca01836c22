package edge

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIdentity_ForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/images/generate", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	r.RemoteAddr = "10.0.0.1:54321"

	if got := clientIdentity(r); got != "203.0.113.7" {
		t.Errorf("clientIdentity = %q, want first forwarded hop", got)
	}
}

func TestClientIdentity_FallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/images/generate", nil)
	r.RemoteAddr = "198.51.100.9:12345"

	if got := clientIdentity(r); got != "198.51.100.9" {
		t.Errorf("clientIdentity = %q, want peer host without port", got)
	}
}

func TestClientIdentity_MalformedRemoteAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/images/generate", nil)
	r.RemoteAddr = "not-a-host-port"

	if got := clientIdentity(r); got != "not-a-host-port" {
		t.Errorf("clientIdentity = %q, want raw RemoteAddr as fallback", got)
	}
}
