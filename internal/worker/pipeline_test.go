package worker

import (
	"context"
	"testing"
)

type countingPipeline struct {
	loads *int
}

func (p countingPipeline) Load(ctx context.Context) error {
	*p.loads++
	return nil
}
func (p countingPipeline) Cleanup(ctx context.Context) error { return nil }
func (p countingPipeline) Call(ctx context.Context, params map[string]any) ([][]byte, error) {
	return nil, nil
}

func TestRegistry_GetIsLazyAndSingleton(t *testing.T) {
	loads := 0
	reg := NewRegistry()
	reg.Register(PipelineGenerate, func() Pipeline { return countingPipeline{loads: &loads} })

	if loads != 0 {
		t.Fatalf("expected no load before first Get, got %d", loads)
	}

	p1, err := reg.Get(context.Background(), PipelineGenerate)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	p2, err := reg.Get(context.Background(), PipelineGenerate)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loads != 1 {
		t.Fatalf("expected exactly one Load call across repeated Get, got %d", loads)
	}
	if p1 != p2 {
		t.Fatalf("expected the same singleton instance across Get calls")
	}
}

func TestRegistry_GetUnregisteredKind(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Get(context.Background(), PipelineStyle); err == nil {
		t.Fatal("expected error for unregistered pipeline kind")
	}
}

func TestNullPipeline_CallFails(t *testing.T) {
	reg := NewRegistry()
	RegisterNullPipelines(reg)

	for _, kind := range []PipelineKind{PipelineGenerate, PipelineInpaint, PipelineSAM, PipelineBackground, PipelineStyle, PipelineTranslate} {
		p, err := reg.Get(context.Background(), kind)
		if err != nil {
			t.Fatalf("Get(%s): %v", kind, err)
		}
		if _, err := p.Call(context.Background(), map[string]any{}); err == nil {
			t.Fatalf("expected NullPipeline.Call to fail for kind %s", kind)
		}
	}
}
