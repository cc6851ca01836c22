// Package replay is the Replay Engine: it materializes a historical edit
// against a new target image by reusing the stored mask and parameters of
// an EditHistory row, yielding a fresh inpaint submission.
package replay

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zimage/orchestrator/internal/models"
	"github.com/zimage/orchestrator/internal/objectstore"
	"github.com/zimage/orchestrator/internal/queue"
	"github.com/zimage/orchestrator/internal/store"
)

var (
	ErrNoMask    = errors.New("edit history has no stored mask")
	ErrForbidden = errors.New("edit history does not belong to caller")
)

type Engine struct {
	Store   *store.Store
	Objects *objectstore.Adapter
	Queue   *queue.Adapter
}

func New(s *store.Store, o *objectstore.Adapter, q *queue.Adapter) *Engine {
	return &Engine{Store: s, Objects: o, Queue: q}
}

// Replay fetches the stored mask for history, validates ownership of both
// the history row and the target image, and submits a new InpaintTask
// whose parameters are copied verbatim from history. Per testable property
// 6, a different target_image_id yields a different output id with
// identical parameters.
func (e *Engine) Replay(ctx context.Context, userID, historyID, targetImageID uuid.UUID) (*models.InpaintTask, error) {
	history, err := e.Store.GetEditHistory(ctx, historyID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if history.UserID != userID {
		return nil, ErrForbidden
	}
	if history.MaskObjectName == "" {
		return nil, ErrNoMask
	}

	target, err := e.Store.GetImage(ctx, targetImageID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if target.OwnerID != userID {
		return nil, ErrForbidden
	}

	maskBytes, err := e.Objects.Get(ctx, history.MaskObjectName)
	if err != nil {
		return nil, fmt.Errorf("fetch stored mask: %w", err)
	}
	maskB64 := base64.StdEncoding.EncodeToString(maskBytes)

	guidanceScale := 7.5
	steps := 30
	var seed *int64
	if history.Metadata != nil {
		if v, ok := history.Metadata["guidance_scale"].(float64); ok {
			guidanceScale = v
		}
		if v, ok := history.Metadata["steps"].(float64); ok {
			steps = int(v)
		}
		if v, ok := history.Metadata["seed"].(float64); ok {
			s := int64(v)
			seed = &s
		}
	}

	task := &models.InpaintTask{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          models.StatusPending,
		OriginalImageID: targetImageID,
		Prompt:          history.Prompt,
		NegativePrompt:  history.NegativePrompt,
		Strength:        history.Strength,
		GuidanceScale:   guidanceScale,
		Steps:           steps,
		Seed:            seed,
		CreatedAt:       time.Now(),
	}
	if err := e.Store.CreateInpaintTask(ctx, task); err != nil {
		return nil, err
	}

	kwargs := map[string]any{
		"user_id":             task.UserID.String(),
		"original_image_id":   task.OriginalImageID.String(),
		"original_image_url":  target.URL,
		"mask_base64":         maskB64,
		"prompt":              task.Prompt,
		"negative_prompt":     task.NegativePrompt,
		"strength":            task.Strength,
		"guidance_scale":      task.GuidanceScale,
		"steps":               task.Steps,
		"seed":                task.Seed,
		"replayed_from_history": historyID.String(),
	}
	handle, err := e.Queue.Enqueue(ctx, models.KindInpaint, task.ID.String(), kwargs)
	if err != nil {
		return nil, err
	}
	if err := e.Store.SetInpaintQueueHandle(ctx, task.ID, handle); err != nil {
		return nil, err
	}
	task.QueueTaskID = handle
	return task, nil
}
