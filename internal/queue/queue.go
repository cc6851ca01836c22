// Package queue is the Queue Adapter: enqueue of named task payloads,
// retrieval of task state and result, and routing to named lanes. It wraps
// asynq/Redis, mirroring the Celery-over-Redis broker the original system
// used, with the same single lane ("image_generation") and idempotency-key
// discipline.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/zimage/orchestrator/internal/config"
	"github.com/zimage/orchestrator/internal/models"
)

// Limits bounds one task kind's soft/hard execution window and retry
// budget, per §4.4 of the dispatch policy.
type Limits struct {
	Soft       time.Duration
	Hard       time.Duration
	MaxRetries int
}

var limitsByKind = map[models.TaskKind]Limits{
	models.KindGenerate:             {Soft: 240 * time.Second, Hard: 300 * time.Second, MaxRetries: 2},
	models.KindInpaint:              {Soft: 300 * time.Second, Hard: 360 * time.Second, MaxRetries: 2},
	models.KindSAMPoint:             {Soft: 60 * time.Second, Hard: 90 * time.Second, MaxRetries: 2},
	models.KindSAMBox:               {Soft: 60 * time.Second, Hard: 90 * time.Second, MaxRetries: 2},
	models.KindSAMAuto:              {Soft: 60 * time.Second, Hard: 90 * time.Second, MaxRetries: 2},
	models.KindBackgroundRemove:     {Soft: 60 * time.Second, Hard: 90 * time.Second, MaxRetries: 2},
	models.KindBackgroundReplaceImg: {Soft: 60 * time.Second, Hard: 90 * time.Second, MaxRetries: 2},
	models.KindBackgroundReplaceCol: {Soft: 60 * time.Second, Hard: 90 * time.Second, MaxRetries: 2},
	models.KindBackgroundMask:       {Soft: 60 * time.Second, Hard: 90 * time.Second, MaxRetries: 2},
	models.KindStyleApply:           {Soft: 180 * time.Second, Hard: 240 * time.Second, MaxRetries: 2},
}

// LimitsFor returns the configured soft/hard timeout and retry budget for
// kind, defaulting to the generate profile for any kind not listed above.
func LimitsFor(kind models.TaskKind) Limits {
	if l, ok := limitsByKind[kind]; ok {
		return l
	}
	return limitsByKind[models.KindGenerate]
}

// Payload is the envelope enqueued onto the lane: a kind tag plus the
// kwargs the corresponding worker handler expects.
type Payload struct {
	Kind   models.TaskKind `json:"kind"`
	TaskID string          `json:"task_id"`
	Kwargs json.RawMessage `json:"kwargs"`
}

// Adapter is the Queue Adapter: enqueue plus state/result retrieval.
type Adapter struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	lane      string
}

func NewAdapter(cfg config.Queue) *Adapter {
	opt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	return &Adapter{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		lane:      cfg.Lane,
	}
}

func (a *Adapter) Close() error {
	if err := a.client.Close(); err != nil {
		return err
	}
	return a.inspector.Close()
}

func (a *Adapter) Lane() string { return a.lane }

// Enqueue submits kind's kwargs onto the shared lane, using taskID as the
// idempotency key so re-submission of the same id never double-enqueues.
// Returns the queue's own handle for the task (its asynq task ID, which
// here is always taskID itself).
func (a *Adapter) Enqueue(ctx context.Context, kind models.TaskKind, taskID string, kwargs any) (string, error) {
	raw, err := json.Marshal(kwargs)
	if err != nil {
		return "", fmt.Errorf("marshal kwargs: %w", err)
	}
	payload, err := json.Marshal(Payload{Kind: kind, TaskID: taskID, Kwargs: raw})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	limits := LimitsFor(kind)
	task := asynq.NewTask(string(kind), payload)

	_, err = a.client.EnqueueContext(ctx, task,
		asynq.Queue(a.lane),
		asynq.TaskID(taskID),
		asynq.MaxRetry(limits.MaxRetries),
		asynq.Timeout(limits.Hard),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return "", err
	}
	return taskID, nil
}

// State mirrors the broker states the reconciler cares about.
type State string

const (
	StatePending   State = "pending"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateRetry     State = "retry"
	StateUnknown   State = "unknown"
)

// Result is what the reconciler reads back for a handle: the broker-level
// state, and — once the task has run — the raw TaskResult JSON the worker
// wrote.
type Result struct {
	State  State
	Result []byte // raw result JSON as stored by the broker; nil unless State is StateCompleted or StateFailed
}

// Fetch consults the broker for handle's current state and, if the task
// has finished, its result payload.
func (a *Adapter) Fetch(ctx context.Context, handle string) (Result, error) {
	info, err := a.inspector.GetTaskInfo(a.lane, handle)
	if err != nil {
		if err == asynq.ErrTaskNotFound {
			return Result{State: StateUnknown}, nil
		}
		return Result{}, err
	}

	switch info.State {
	case asynq.TaskStatePending, asynq.TaskStateScheduled, asynq.TaskStateAggregating:
		return Result{State: StatePending}, nil
	case asynq.TaskStateActive:
		return Result{State: StateActive}, nil
	case asynq.TaskStateRetry:
		return Result{State: StateRetry}, nil
	case asynq.TaskStateCompleted:
		return Result{State: StateCompleted, Result: info.Result}, nil
	case asynq.TaskStateArchived:
		return Result{State: StateFailed, Result: info.Result}, nil
	default:
		return Result{State: StateUnknown}, nil
	}
}
