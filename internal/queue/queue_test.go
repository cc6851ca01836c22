package queue

import (
	"testing"

	"github.com/zimage/orchestrator/internal/models"
)

func TestLimitsFor_KnownKinds(t *testing.T) {
	cases := []struct {
		kind models.TaskKind
		soft float64
		hard float64
	}{
		{models.KindGenerate, 240, 300},
		{models.KindInpaint, 300, 360},
		{models.KindSAMPoint, 60, 90},
		{models.KindBackgroundRemove, 60, 90},
		{models.KindStyleApply, 180, 240},
	}
	for _, c := range cases {
		l := LimitsFor(c.kind)
		if l.Soft.Seconds() != c.soft || l.Hard.Seconds() != c.hard {
			t.Errorf("%s: got soft=%v hard=%v, want soft=%vs hard=%vs", c.kind, l.Soft, l.Hard, c.soft, c.hard)
		}
		if l.MaxRetries != 2 {
			t.Errorf("%s: expected 2 retries, got %d", c.kind, l.MaxRetries)
		}
	}
}

func TestLimitsFor_UnknownKindDefaultsToGenerate(t *testing.T) {
	l := LimitsFor(models.TaskKind("nonexistent"))
	g := LimitsFor(models.KindGenerate)
	if l != g {
		t.Errorf("expected unknown kind to default to generate limits, got %+v", l)
	}
}
