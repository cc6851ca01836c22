package httpapi

import (
	"testing"
	"time"

	"github.com/zimage/orchestrator/internal/models"
)

func TestProgressFor_TerminalStates(t *testing.T) {
	if pct, msg := progressFor(models.StatusCompleted, nil, 10); pct != 100 || msg != "done" {
		t.Errorf("completed: got (%d, %q)", pct, msg)
	}
	if pct, msg := progressFor(models.StatusFailed, nil, 10); pct != 0 || msg != "failed" {
		t.Errorf("failed: got (%d, %q)", pct, msg)
	}
	if pct, msg := progressFor(models.StatusPending, nil, 10); pct != 5 || msg != "queued" {
		t.Errorf("pending: got (%d, %q)", pct, msg)
	}
}

func TestProgressFor_ProcessingWithoutStartedAt(t *testing.T) {
	pct, msg := progressFor(models.StatusProcessing, nil, 10)
	if pct != 10 || msg != "preparing" {
		t.Errorf("expected (10, preparing) when started_at is unset, got (%d, %q)", pct, msg)
	}
}

func TestProgressFor_ProcessingMilestones(t *testing.T) {
	cases := []struct {
		elapsedFrac float64 // elapsed as a fraction of estimated
		wantMsg     string
	}{
		{0.1, "model-init"},
		{0.3, "preparing"},
		{0.7, "generating"},
		{0.99, "finalizing"},
	}
	const estimated = 100.0
	for _, c := range cases {
		started := time.Now().Add(-time.Duration(c.elapsedFrac*estimated) * time.Second)
		_, msg := progressFor(models.StatusProcessing, &started, estimated)
		if msg != c.wantMsg {
			t.Errorf("elapsedFrac=%v: got msg %q, want %q", c.elapsedFrac, msg, c.wantMsg)
		}
	}
}

func TestProgressFor_ProcessingClampedAt95(t *testing.T) {
	started := time.Now().Add(-10 * time.Hour)
	pct, _ := progressFor(models.StatusProcessing, &started, 10)
	if pct != 95 {
		t.Errorf("expected progress clamped at 95, got %d", pct)
	}
}

func TestRenderTaskStatus_ElapsedUsesCompletedMinusStarted(t *testing.T) {
	started := time.Now().Add(-30 * time.Second)
	completed := started.Add(20 * time.Second)
	resp := renderTaskStatus(models.StatusCompleted, started, &started, &completed, 20, "")
	if resp.ElapsedSeconds != 20 {
		t.Errorf("expected elapsed 20s, got %v", resp.ElapsedSeconds)
	}
	if resp.Progress != 100 {
		t.Errorf("expected 100%% progress for completed task, got %d", resp.Progress)
	}
}

func TestRenderTaskStatus_CarriesErrorMessage(t *testing.T) {
	now := time.Now()
	resp := renderTaskStatus(models.StatusFailed, now, &now, &now, 10, "pipeline exploded")
	if resp.Error != "pipeline exploded" {
		t.Errorf("expected error message preserved, got %q", resp.Error)
	}
}
