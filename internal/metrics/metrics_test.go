package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, route, method, status string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := HTTPRequestsTotal.WithLabelValues(route, method, status).Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestInstrument_RecordsStatusCode(t *testing.T) {
	handler := Instrument("/test-route", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := counterValue(t, "/test-route", http.MethodGet, "418")

	req := httptest.NewRequest(http.MethodGet, "/test-route", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected status to pass through, got %d", rec.Code)
	}
	after := counterValue(t, "/test-route", http.MethodGet, "418")
	if after != before+1 {
		t.Errorf("expected request counter to increment by 1, got before=%v after=%v", before, after)
	}
}

func TestInstrument_DefaultsTo200WhenWriteHeaderNotCalled(t *testing.T) {
	handler := Instrument("/default-status-route", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/default-status-route", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if got := counterValue(t, "/default-status-route", http.MethodGet, "200"); got != 1 {
		t.Errorf("expected implicit 200 to be recorded, got %v", got)
	}
}
