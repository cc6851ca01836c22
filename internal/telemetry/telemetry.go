// Package telemetry is the Telemetry Loop: a background sampler that
// writes GPU counters into the shared KV cache on a fixed interval, and the
// shapes the stats endpoint reads back. OS-level GPU probing itself is out
// of scope (§1) — Prober is the seam a real deployment wires to NVML or a
// vendor SDK; this package only owns the sample/publish/format loop.
package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zimage/orchestrator/internal/kv"
)

const (
	sampleInterval = 10 * time.Second
	sampleTTL      = 30 * time.Second
)

// GPUSample is the JSON document written to the KV cache and returned by
// the stats endpoint.
type GPUSample struct {
	Available      bool    `json:"available"`
	Name           string  `json:"name,omitempty"`
	UtilizationPct float64 `json:"utilization_pct"`
	MemoryUsedMB   float64 `json:"memory_used_mb"`
	MemoryTotalMB  float64 `json:"memory_total_mb"`
	MemoryFreeMB   float64 `json:"memory_free_mb"`
	TemperatureC   float64 `json:"temperature_c"`
	PowerDrawW     float64 `json:"power_draw_w"`
	PowerLimitW    float64 `json:"power_limit_w"`
}

// Unavailable is the zeroed fallback the stats endpoint returns when the
// cached sample is missing or stale.
func Unavailable() GPUSample {
	return GPUSample{Available: false}
}

// Prober yields one GPU reading. A production build wires this to NVML or
// a vendor monitoring SDK; it is never implemented against a real device
// in this repository.
type Prober interface {
	Sample(ctx context.Context) (GPUSample, error)
}

// NullProber reports no GPU present. It is the default when no hardware
// binding is configured, so the stats endpoint degrades gracefully instead
// of crashing the worker process.
type NullProber struct{}

func (NullProber) Sample(context.Context) (GPUSample, error) {
	return GPUSample{Available: false}, nil
}

// Loop samples p every 10s and publishes the result to the KV cache under
// kv.GPUStatsKey with a 30s TTL, until ctx is canceled.
func Loop(ctx context.Context, p Prober, cache *kv.Adapter) {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	publish := func() {
		sample, err := p.Sample(ctx)
		if err != nil {
			log.Error().Err(err).Msg("gpu probe failed")
			return
		}
		raw, err := json.Marshal(sample)
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal gpu sample")
			return
		}
		if err := cache.SetJSON(ctx, kv.GPUStatsKey, raw, sampleTTL); err != nil {
			log.Error().Err(err).Msg("failed to publish gpu sample")
		}
	}

	publish()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			publish()
		}
	}
}
