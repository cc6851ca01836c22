package worker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/zimage/orchestrator/internal/config"
	"github.com/zimage/orchestrator/internal/metrics"
	"github.com/zimage/orchestrator/internal/models"
	"github.com/zimage/orchestrator/internal/objectstore"
	"github.com/zimage/orchestrator/internal/queue"
)

// Dispatcher owns pipeline execution for every task kind the queue
// delivers. It never touches the metadata store directly: the status
// reconciler materializes a TaskResult into Postgres lazily on poll, so
// apart from uploading artifacts to object storage, the only durable write
// this package performs is the result the queue itself records.
type Dispatcher struct {
	Pipelines        *Registry
	Objects          *objectstore.Adapter
	TranslateEnabled bool
}

func NewDispatcher(pipelines *Registry, objects *objectstore.Adapter, cfg config.Worker) *Dispatcher {
	return &Dispatcher{
		Pipelines:        pipelines,
		Objects:          objects,
		TranslateEnabled: cfg.TranslateEnabled,
	}
}

// Server builds the asynq.Server this process runs, wired to retry with a
// linear backoff and to log every failed attempt with its retry count.
func (d *Dispatcher) Server(qcfg config.Queue, wcfg config.Worker) *asynq.Server {
	opt := asynq.RedisClientOpt{Addr: qcfg.RedisAddr, Password: qcfg.RedisPassword, DB: qcfg.RedisDB}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: wcfg.Concurrency,
		Queues:      map[string]int{qcfg.Lane: 1},
		RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
			return time.Duration(5*(n+1)) * time.Second
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.Error().Err(err).Str("kind", t.Type()).Int("attempt", retried+1).Int("max_attempts", maxRetry+1).
				Msg("task attempt failed")
		}),
	})
}

// Mux registers every known task kind onto one handler, since dispatch on
// kind happens inside handle rather than via a distinct function per
// route.
func (d *Dispatcher) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	for _, kind := range []models.TaskKind{
		models.KindGenerate,
		models.KindInpaint,
		models.KindSAMPoint,
		models.KindSAMBox,
		models.KindSAMAuto,
		models.KindBackgroundRemove,
		models.KindBackgroundReplaceImg,
		models.KindBackgroundReplaceCol,
		models.KindBackgroundMask,
		models.KindStyleApply,
	} {
		mux.HandleFunc(string(kind), d.handle)
	}
	return mux
}

func pipelineKindFor(kind models.TaskKind) PipelineKind {
	switch kind {
	case models.KindGenerate:
		return PipelineGenerate
	case models.KindInpaint:
		return PipelineInpaint
	case models.KindSAMPoint, models.KindSAMBox, models.KindSAMAuto:
		return PipelineSAM
	case models.KindStyleApply:
		return PipelineStyle
	default:
		return PipelineBackground
	}
}

// handle is the single asynq.HandlerFunc every task kind routes through.
// On an exhausted retry budget it writes a failed TaskResult and returns
// nil instead of an error, so the queue entry itself resolves completed —
// the reconciler reads the failure out of the result payload rather than
// out of the broker's own archived state.
func (d *Dispatcher) handle(ctx context.Context, t *asynq.Task) error {
	var payload queue.Payload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	result, err := d.execute(ctx, payload)
	if err == nil {
		metrics.TasksDispatched.WithLabelValues(string(payload.Kind), "completed").Inc()
		return d.writeResult(t, result)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried < maxRetry {
		metrics.TasksDispatched.WithLabelValues(string(payload.Kind), "retry").Inc()
		return err
	}

	log.Error().Err(err).Str("task_id", payload.TaskID).Str("kind", string(payload.Kind)).
		Msg("task failed, retries exhausted")
	metrics.TasksDispatched.WithLabelValues(string(payload.Kind), "failed").Inc()
	return d.writeResult(t, models.TaskResult{TaskID: payload.TaskID, Status: "failed", Error: err.Error()})
}

func (d *Dispatcher) writeResult(t *asynq.Task, result models.TaskResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if _, err := t.ResultWriter().Write(raw); err != nil {
		log.Error().Err(err).Str("task_id", result.TaskID).Msg("failed to write task result")
	}
	return nil
}

func (d *Dispatcher) execute(ctx context.Context, payload queue.Payload) (models.TaskResult, error) {
	limits := queue.LimitsFor(payload.Kind)

	switch payload.Kind {
	case models.KindGenerate:
		return d.executeGenerate(ctx, payload, limits)
	case models.KindInpaint:
		return d.executeInpaint(ctx, payload, limits)
	default:
		return d.executeEdit(ctx, payload, limits)
	}
}

type generateKwargs struct {
	UserID         string `json:"user_id"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	NumImages      int    `json:"num_images"`
	Seed           *int64 `json:"seed"`
}

func (d *Dispatcher) executeGenerate(ctx context.Context, payload queue.Payload, limits queue.Limits) (models.TaskResult, error) {
	var kw generateKwargs
	if err := json.Unmarshal(payload.Kwargs, &kw); err != nil {
		return models.TaskResult{}, fmt.Errorf("unmarshal generate kwargs: %w", err)
	}

	modelPrompt, _, err := d.maybeTranslate(ctx, kw.Prompt)
	if err != nil {
		return models.TaskResult{}, fmt.Errorf("translate prompt: %w", err)
	}

	out, err := d.callWithTimeout(ctx, PipelineGenerate, map[string]any{
		"prompt":          modelPrompt,
		"negative_prompt": kw.NegativePrompt,
		"width":           kw.Width,
		"height":          kw.Height,
		"num_images":      kw.NumImages,
		"seed":            kw.Seed,
	}, limits)
	if err != nil {
		return models.TaskResult{}, err
	}

	images := d.uploadImages(ctx, kw.UserID, payload.TaskID, out, kw.Width, kw.Height, kw.Seed)
	return models.TaskResult{TaskID: payload.TaskID, Status: "completed", Images: images}, nil
}

type inpaintKwargs struct {
	UserID            string  `json:"user_id"`
	OriginalImageID   string  `json:"original_image_id"`
	OriginalImageURL  string  `json:"original_image_url"`
	MaskBase64        string  `json:"mask_base64"`
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	Strength          float64 `json:"strength"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Steps             int     `json:"steps"`
	Seed              *int64  `json:"seed"`
}

func (d *Dispatcher) executeInpaint(ctx context.Context, payload queue.Payload, limits queue.Limits) (models.TaskResult, error) {
	var kw inpaintKwargs
	if err := json.Unmarshal(payload.Kwargs, &kw); err != nil {
		return models.TaskResult{}, fmt.Errorf("unmarshal inpaint kwargs: %w", err)
	}

	maskBytes, err := base64.StdEncoding.DecodeString(kw.MaskBase64)
	if err != nil {
		return models.TaskResult{}, fmt.Errorf("decode mask: %v: %w", err, asynq.SkipRetry)
	}
	maskKey := objectstore.MaskKey(kw.UserID, payload.TaskID, uuid.New().String())
	if _, err := d.Objects.Put(ctx, maskKey, maskBytes, "image/png"); err != nil {
		return models.TaskResult{}, fmt.Errorf("upload mask: %w", err)
	}

	modelPrompt, _, err := d.maybeTranslate(ctx, kw.Prompt)
	if err != nil {
		return models.TaskResult{}, fmt.Errorf("translate prompt: %w", err)
	}

	out, err := d.callWithTimeout(ctx, PipelineInpaint, map[string]any{
		"original_image_url": kw.OriginalImageURL,
		"mask_base64":        kw.MaskBase64,
		"prompt":             modelPrompt,
		"negative_prompt":    kw.NegativePrompt,
		"strength":           kw.Strength,
		"guidance_scale":     kw.GuidanceScale,
		"steps":              kw.Steps,
		"seed":               kw.Seed,
	}, limits)
	if err != nil {
		return models.TaskResult{}, err
	}

	images := d.uploadImages(ctx, kw.UserID, payload.TaskID, out, 0, 0, kw.Seed)
	return models.TaskResult{TaskID: payload.TaskID, Status: "completed", Images: images, MaskObjectName: maskKey}, nil
}

type editKwargs struct {
	UserID           string          `json:"user_id"`
	OriginalImageID  string          `json:"original_image_id"`
	OriginalImageURL string          `json:"original_image_url"`
	Params           json.RawMessage `json:"params"`
}

func (d *Dispatcher) executeEdit(ctx context.Context, payload queue.Payload, limits queue.Limits) (models.TaskResult, error) {
	var kw editKwargs
	if err := json.Unmarshal(payload.Kwargs, &kw); err != nil {
		return models.TaskResult{}, fmt.Errorf("unmarshal edit kwargs: %w", err)
	}

	params := map[string]any{}
	if len(kw.Params) > 0 {
		if err := json.Unmarshal(kw.Params, &params); err != nil {
			return models.TaskResult{}, fmt.Errorf("unmarshal edit params: %v: %w", err, asynq.SkipRetry)
		}
	}
	params["original_image_url"] = kw.OriginalImageURL

	pkind := pipelineKindFor(payload.Kind)
	out, err := d.callWithTimeout(ctx, pkind, params, limits)
	if err != nil {
		return models.TaskResult{}, err
	}

	result := models.TaskResult{TaskID: payload.TaskID, Status: "completed"}
	if payload.Kind == models.KindBackgroundMask && len(out) > 0 {
		maskKey := objectstore.MaskKey(kw.UserID, payload.TaskID, uuid.New().String())
		if _, err := d.Objects.Put(ctx, maskKey, out[0], "image/png"); err != nil {
			return models.TaskResult{}, fmt.Errorf("upload mask: %w", err)
		}
		result.MaskObjectName = maskKey
		return result, nil
	}

	result.Images = d.uploadImages(ctx, kw.UserID, payload.TaskID, out, 0, 0, nil)
	return result, nil
}

func (d *Dispatcher) uploadImages(ctx context.Context, userID, taskID string, raw [][]byte, width, height int, seed *int64) []models.ResultImage {
	images := make([]models.ResultImage, 0, len(raw))
	for _, b := range raw {
		id := uuid.New()
		key := objectstore.ImageKey(userID, taskID, id.String())
		url, err := d.Objects.Put(ctx, key, b, "image/png")
		if err != nil {
			log.Error().Err(err).Str("task_id", taskID).Msg("failed to upload result image")
			continue
		}
		images = append(images, models.ResultImage{
			ID: id, URL: url, ObjectName: key, Width: width, Height: height, Seed: seed,
		})
	}
	return images
}

// callWithTimeout races the pipeline call against the hard deadline asynq
// already placed on ctx, logging once if the soft budget in limits is
// crossed while the call is still in flight.
func (d *Dispatcher) callWithTimeout(ctx context.Context, kind PipelineKind, params map[string]any, limits queue.Limits) ([][]byte, error) {
	pipeline, err := d.Pipelines.Get(ctx, kind)
	if err != nil {
		return nil, err
	}
	callStart := time.Now()
	defer func() {
		metrics.PipelineCallDuration.WithLabelValues(string(kind)).Observe(time.Since(callStart).Seconds())
	}()

	type callResult struct {
		out [][]byte
		err error
	}
	resultCh := make(chan callResult, 1)
	go func() {
		out, err := pipeline.Call(ctx, params)
		resultCh <- callResult{out: out, err: err}
	}()

	softTimer := time.NewTimer(limits.Soft)
	defer softTimer.Stop()

	for {
		select {
		case res := <-resultCh:
			return res.out, res.err
		case <-softTimer.C:
			log.Warn().Str("pipeline", string(kind)).Dur("soft_timeout", limits.Soft).
				Msg("pipeline call exceeded soft timeout, still running")
		case <-ctx.Done():
			return nil, fmt.Errorf("pipeline %q exceeded hard timeout: %w", kind, ctx.Err())
		}
	}
}
