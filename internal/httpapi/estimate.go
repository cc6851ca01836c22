package httpapi

import (
	"sync"

	"github.com/zimage/orchestrator/internal/models"
)

// firstJobSeen tracks, per pipeline kind, whether this process has already
// estimated a job for it. The first job pays a one-time model-load penalty,
// mirroring the worker's own lazy pipeline singleton in §4.4 — the API
// can't know the worker's real load state, so it approximates it locally.
var (
	firstJobMu   sync.Mutex
	firstJobSeen = map[models.TaskKind]bool{}
)

func modelLoadPenalty(kind models.TaskKind) float64 {
	firstJobMu.Lock()
	defer firstJobMu.Unlock()
	if firstJobSeen[kind] {
		return 0
	}
	firstJobSeen[kind] = true
	return 5
}

// estimatedGenerateSeconds is the base resolution scaling plus +2s per
// extra image, plus a one-time per-pipeline load penalty.
func estimatedGenerateSeconds(width, height, numImages int) float64 {
	base := 6.0
	if width*height > 1024*1024 {
		base = 8.0
	}
	base += float64(numImages-1) * 2
	return base + modelLoadPenalty(models.KindGenerate)
}

func estimatedInpaintSeconds() float64 {
	return 15 + modelLoadPenalty(models.KindInpaint)
}

func estimatedSegmentSeconds(kind models.TaskKind) float64 {
	base := 5.0
	if kind == models.KindSAMAuto {
		base = 10
	}
	return base + modelLoadPenalty(kind)
}

func estimatedBackgroundSeconds(kind models.TaskKind) float64 {
	return 5 + modelLoadPenalty(kind)
}

func estimatedStyleSeconds() float64 {
	return 10 + modelLoadPenalty(models.KindStyleApply)
}
