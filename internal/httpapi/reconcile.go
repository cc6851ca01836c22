package httpapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zimage/orchestrator/internal/models"
	"github.com/zimage/orchestrator/internal/queue"
)

// progressFor computes the reported progress and milestone message for a
// task, per §4.5 step 4.
func progressFor(status models.TaskStatus, startedAt *time.Time, estimatedSeconds float64) (int, string) {
	switch status {
	case models.StatusCompleted:
		return 100, "done"
	case models.StatusFailed:
		return 0, "failed"
	case models.StatusPending:
		return 5, "queued"
	default: // processing
		if startedAt == nil || estimatedSeconds <= 0 {
			return 10, "preparing"
		}
		elapsed := time.Since(*startedAt).Seconds()
		pct := int((elapsed / estimatedSeconds) * 100)
		if pct > 95 {
			pct = 95
		}
		if pct < 5 {
			pct = 5
		}
		var msg string
		switch {
		case pct < 20:
			msg = "model-init"
		case pct < 50:
			msg = "preparing"
		case pct < 90:
			msg = "generating"
		default:
			msg = "finalizing"
		}
		return pct, msg
	}
}

func renderTaskStatus(status models.TaskStatus, createdAt time.Time, startedAt, completedAt *time.Time, estimatedSeconds float64, errMsg string) taskStatusResp {
	progress, msg := progressFor(status, startedAt, estimatedSeconds)
	elapsed := 0.0
	switch {
	case completedAt != nil && startedAt != nil:
		elapsed = completedAt.Sub(*startedAt).Seconds()
	case startedAt != nil:
		elapsed = time.Since(*startedAt).Seconds()
	}
	return taskStatusResp{
		Status:           string(status),
		Progress:         progress,
		ProgressMessage:  msg,
		ElapsedSeconds:   elapsed,
		EstimatedSeconds: estimatedSeconds,
		Error:            errMsg,
		CreatedAt:        createdAt,
		StartedAt:        startedAt,
		CompletedAt:      completedAt,
	}
}

func (s *Server) imagesForTask(ctx context.Context, taskID uuid.UUID) []models.Image {
	images, err := s.Store.ListImagesByTask(ctx, taskID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("task_id", taskID.String()).Msg("failed to load task images")
		return nil
	}
	return images
}

// reconcileGeneration consults the queue for a non-terminal task and, if
// the broker reports a result, performs the atomic promote-and-materialize
// step. Safe under concurrent pollers: the store layer's conditional
// update and unique constraints absorb the race.
func (s *Server) reconcileGeneration(ctx context.Context, task *models.GenerationTask) (*models.GenerationTask, []models.Image, error) {
	res, err := s.Queue.Fetch(ctx, task.QueueTaskID)
	if err != nil {
		return task, nil, err
	}

	now := time.Now()
	switch res.State {
	case queue.StateActive, queue.StateRetry:
		if err := s.Store.MarkGenerationProcessing(ctx, task.ID, now); err != nil {
			return task, nil, err
		}
	case queue.StateCompleted:
		var result models.TaskResult
		if err := json.Unmarshal(res.Result, &result); err != nil {
			return task, nil, err
		}
		if result.Status == string(models.StatusFailed) {
			if err := s.Store.FailGeneration(ctx, task.ID, result.Error, now); err != nil {
				return task, nil, err
			}
		} else {
			images, err := s.Store.CompleteGeneration(ctx, task.ID, result, now)
			if err != nil {
				return task, nil, err
			}
			task, err = s.Store.GetGenerationTask(ctx, task.ID)
			if err != nil {
				return task, nil, err
			}
			return task, images, nil
		}
	case queue.StateFailed:
		if err := s.Store.FailGeneration(ctx, task.ID, "worker task failed", now); err != nil {
			return task, nil, err
		}
	}

	task, err = s.Store.GetGenerationTask(ctx, task.ID)
	return task, nil, err
}

func (s *Server) reconcileInpaint(ctx context.Context, task *models.InpaintTask) (*models.InpaintTask, []models.Image, error) {
	res, err := s.Queue.Fetch(ctx, task.QueueTaskID)
	if err != nil {
		return task, nil, err
	}

	now := time.Now()
	switch res.State {
	case queue.StateActive, queue.StateRetry:
		if err := s.Store.MarkInpaintProcessing(ctx, task.ID, now); err != nil {
			return task, nil, err
		}
	case queue.StateCompleted:
		var result models.TaskResult
		if err := json.Unmarshal(res.Result, &result); err != nil {
			return task, nil, err
		}
		if result.Status == string(models.StatusFailed) {
			if err := s.Store.FailInpaint(ctx, task.ID, result.Error, now); err != nil {
				return task, nil, err
			}
		} else {
			images, _, err := s.Store.CompleteInpaint(ctx, task.ID, result, now)
			if err != nil {
				return task, nil, err
			}
			task, err = s.Store.GetInpaintTask(ctx, task.ID)
			if err != nil {
				return task, nil, err
			}
			return task, images, nil
		}
	case queue.StateFailed:
		if err := s.Store.FailInpaint(ctx, task.ID, "worker task failed", now); err != nil {
			return task, nil, err
		}
	}

	task, err = s.Store.GetInpaintTask(ctx, task.ID)
	return task, nil, err
}

func (s *Server) reconcileEditTask(ctx context.Context, task *models.EditTask) (*models.EditTask, []models.Image, error) {
	res, err := s.Queue.Fetch(ctx, task.QueueTaskID)
	if err != nil {
		return task, nil, err
	}

	now := time.Now()
	switch res.State {
	case queue.StateActive, queue.StateRetry:
		if err := s.Store.MarkEditTaskProcessing(ctx, task.ID, now); err != nil {
			return task, nil, err
		}
	case queue.StateCompleted:
		var result models.TaskResult
		if err := json.Unmarshal(res.Result, &result); err != nil {
			return task, nil, err
		}
		if result.Status == string(models.StatusFailed) {
			if err := s.Store.FailEditTask(ctx, task.ID, result.Error, now); err != nil {
				return task, nil, err
			}
		} else {
			images, _, err := s.Store.CompleteEditTask(ctx, task.ID, result, now)
			if err != nil {
				return task, nil, err
			}
			task, err = s.Store.GetEditTask(ctx, task.ID)
			if err != nil {
				return task, nil, err
			}
			return task, images, nil
		}
	case queue.StateFailed:
		if err := s.Store.FailEditTask(ctx, task.ID, "worker task failed", now); err != nil {
			return task, nil, err
		}
	}

	task, err = s.Store.GetEditTask(ctx, task.ID)
	return task, nil, err
}
