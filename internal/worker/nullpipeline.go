package worker

import (
	"context"
	"fmt"
)

// NullPipeline is the default bound for every PipelineKind: it loads and
// cleans up successfully but refuses every call. Actual inference is out
// of scope here — a deployment that wants real image generation, masking
// or style transfer registers its own Pipeline for the kind instead of
// relying on this one.
type NullPipeline struct {
	Kind PipelineKind
}

func (p NullPipeline) Load(ctx context.Context) error    { return nil }
func (p NullPipeline) Cleanup(ctx context.Context) error { return nil }

func (p NullPipeline) Call(ctx context.Context, params map[string]any) ([][]byte, error) {
	return nil, fmt.Errorf("no inference backend registered for pipeline %q", p.Kind)
}

// RegisterNullPipelines installs NullPipeline as the factory for every
// family, so a freshly started worker can serve requests (and fail them
// with a clear error) before any real backend is wired in.
func RegisterNullPipelines(r *Registry) {
	for _, kind := range []PipelineKind{
		PipelineGenerate, PipelineInpaint, PipelineSAM,
		PipelineBackground, PipelineStyle, PipelineTranslate,
	} {
		k := kind
		r.Register(k, func() Pipeline { return NullPipeline{Kind: k} })
	}
}
