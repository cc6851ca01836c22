package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/zimage/orchestrator/internal/kv"
	"github.com/zimage/orchestrator/internal/telemetry"
)

// GPUStats reads the telemetry loop's cached sample. If the key is absent
// or has expired (worker down or stale sample past its 30s TTL), a zeroed
// structure with available=false is returned instead of an error, per §4.7.
func (s *Server) GPUStats(w http.ResponseWriter, r *http.Request) {
	raw, ok, err := s.KV.GetJSON(r.Context(), kv.GPUStatsKey)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "stats lookup failed")
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, telemetry.Unavailable())
		return
	}

	var sample telemetry.GPUSample
	if err := json.Unmarshal(raw, &sample); err != nil {
		writeJSON(w, http.StatusOK, telemetry.Unavailable())
		return
	}
	writeJSON(w, http.StatusOK, sample)
}
