// Package worker is the Worker Dispatcher: single-consumer-per-GPU
// execution of queue payloads, pipeline singleton lifecycle, the
// translation side-pass, retry-with-backoff, artifact upload and
// structured result writing.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Pipeline is the model-bearing black box of §1 and §9: load once, call
// many times, cleanup on process exit. No implementation of load/call is
// provided here — actual inference is out of scope — but the singleton
// lifecycle around it is this package's responsibility.
type Pipeline interface {
	Load(ctx context.Context) error
	Call(ctx context.Context, params map[string]any) ([][]byte, error)
	Cleanup(ctx context.Context) error
}

// PipelineKind groups the ten task kinds into five pipeline families, plus
// the translate family used only by the translation side-pass: one
// singleton per family, not per task kind.
type PipelineKind string

const (
	PipelineGenerate   PipelineKind = "generate"
	PipelineInpaint    PipelineKind = "inpaint"
	PipelineSAM        PipelineKind = "sam"
	PipelineBackground PipelineKind = "background"
	PipelineStyle      PipelineKind = "style"
	PipelineTranslate  PipelineKind = "translate"
)

// Registry lazily loads and holds one Pipeline instance per family. It is
// never accessed concurrently in practice (the worker plane is
// single-threaded per process), but the guard is kept explicit rather than
// relying on that invariant silently.
type Registry struct {
	mu        sync.Mutex
	factories map[PipelineKind]func() Pipeline
	instances map[PipelineKind]Pipeline
}

func NewRegistry() *Registry {
	return &Registry{
		factories: map[PipelineKind]func() Pipeline{},
		instances: map[PipelineKind]Pipeline{},
	}
}

// Register installs the constructor for kind. Call once per kind at
// startup, before any job reaches Get.
func (r *Registry) Register(kind PipelineKind, factory func() Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Get returns the singleton for kind, constructing and loading it on first
// use.
func (r *Registry) Get(ctx context.Context, kind PipelineKind) (Pipeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.instances[kind]; ok {
		return p, nil
	}
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("no pipeline registered for kind %q", kind)
	}
	p := factory()
	if err := p.Load(ctx); err != nil {
		return nil, fmt.Errorf("load pipeline %q: %w", kind, err)
	}
	r.instances[kind] = p
	return p, nil
}

// CleanupAll releases every loaded pipeline on worker shutdown.
func (r *Registry) CleanupAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for kind, p := range r.instances {
		if err := p.Cleanup(ctx); err != nil {
			log.Error().Err(err).Str("pipeline", string(kind)).Msg("pipeline cleanup failed")
		}
	}
}
