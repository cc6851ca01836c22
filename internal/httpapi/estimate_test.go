package httpapi

import (
	"testing"

	"github.com/zimage/orchestrator/internal/models"
)

func TestModelLoadPenalty_OnlyFirstJobPays(t *testing.T) {
	kind := models.TaskKind("test-penalty-kind")
	first := modelLoadPenalty(kind)
	second := modelLoadPenalty(kind)
	if first != 5 {
		t.Fatalf("expected first job to pay 5s penalty, got %v", first)
	}
	if second != 0 {
		t.Fatalf("expected subsequent job to pay no penalty, got %v", second)
	}
}

func TestEstimatedGenerateSeconds_ScalesWithResolutionAndCount(t *testing.T) {
	estimatedGenerateSeconds(512, 512, 1) // prime away the one-time load penalty

	small := estimatedGenerateSeconds(512, 512, 1)
	large := estimatedGenerateSeconds(2048, 2048, 1)
	if large <= small {
		t.Fatalf("expected larger resolution to cost more: small=%v large=%v", small, large)
	}

	one := estimatedGenerateSeconds(512, 512, 1)
	four := estimatedGenerateSeconds(512, 512, 4)
	if four-one != 6 {
		t.Fatalf("expected +2s per extra image (3 extra = 6s), got delta %v", four-one)
	}
}

func TestEstimatedSegmentSeconds_AutoCostsMore(t *testing.T) {
	estimatedSegmentSeconds(models.KindSAMPoint) // prime away load penalties
	estimatedSegmentSeconds(models.KindSAMAuto)

	point := estimatedSegmentSeconds(models.KindSAMPoint)
	auto := estimatedSegmentSeconds(models.KindSAMAuto)
	if auto <= point {
		t.Fatalf("expected sam_auto to cost more than sam_point: point=%v auto=%v", point, auto)
	}
}
