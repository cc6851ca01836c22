package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zimage/orchestrator/internal/models"
	"github.com/zimage/orchestrator/internal/queue"
)

func TestPipelineKindFor(t *testing.T) {
	cases := []struct {
		kind models.TaskKind
		want PipelineKind
	}{
		{models.KindGenerate, PipelineGenerate},
		{models.KindInpaint, PipelineInpaint},
		{models.KindSAMPoint, PipelineSAM},
		{models.KindSAMBox, PipelineSAM},
		{models.KindSAMAuto, PipelineSAM},
		{models.KindStyleApply, PipelineStyle},
		{models.KindBackgroundRemove, PipelineBackground},
		{models.KindBackgroundReplaceImg, PipelineBackground},
		{models.KindBackgroundReplaceCol, PipelineBackground},
		{models.KindBackgroundMask, PipelineBackground},
	}
	for _, c := range cases {
		if got := pipelineKindFor(c.kind); got != c.want {
			t.Errorf("pipelineKindFor(%s) = %s, want %s", c.kind, got, c.want)
		}
	}
}

type blockingPipeline struct {
	unblock chan struct{}
}

func (p blockingPipeline) Load(ctx context.Context) error    { return nil }
func (p blockingPipeline) Cleanup(ctx context.Context) error { return nil }
func (p blockingPipeline) Call(ctx context.Context, params map[string]any) ([][]byte, error) {
	select {
	case <-p.unblock:
		return [][]byte{[]byte("done")}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCallWithTimeout_ReturnsOnCompletion(t *testing.T) {
	unblock := make(chan struct{})
	close(unblock)

	reg := NewRegistry()
	reg.Register(PipelineGenerate, func() Pipeline { return blockingPipeline{unblock: unblock} })
	d := &Dispatcher{Pipelines: reg}

	out, err := d.callWithTimeout(context.Background(), PipelineGenerate, map[string]any{},
		queue.Limits{Soft: time.Hour, Hard: time.Hour})
	if err != nil {
		t.Fatalf("callWithTimeout: %v", err)
	}
	if len(out) != 1 || string(out[0]) != "done" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestCallWithTimeout_HardDeadlineAborts(t *testing.T) {
	reg := NewRegistry()
	reg.Register(PipelineGenerate, func() Pipeline { return blockingPipeline{unblock: make(chan struct{})} })
	d := &Dispatcher{Pipelines: reg}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.callWithTimeout(ctx, PipelineGenerate, map[string]any{},
		queue.Limits{Soft: time.Hour, Hard: time.Hour})
	if err == nil {
		t.Fatal("expected hard-deadline error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped context.DeadlineExceeded, got %v", err)
	}
}
