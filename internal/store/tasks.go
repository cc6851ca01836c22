package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zimage/orchestrator/internal/models"
)

func (s *Store) CreateGenerationTask(ctx context.Context, t *models.GenerationTask) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO generation_tasks
		 (id, user_id, status, prompt, negative_prompt, width, height, num_images, seed, queue_task_id, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		t.ID, t.UserID, t.Status, t.Prompt, t.NegativePrompt, t.Width, t.Height, t.NumImages, t.Seed, t.QueueTaskID, t.CreatedAt)
	return err
}

func (s *Store) SetGenerationQueueHandle(ctx context.Context, id uuid.UUID, handle string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE generation_tasks SET queue_task_id=$2 WHERE id=$1`, id, handle)
	return err
}

func (s *Store) GetGenerationTask(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT id, user_id, status, prompt, negative_prompt, width, height, num_images, seed,
		        error, result, queue_task_id, created_at, started_at, completed_at
		 FROM generation_tasks WHERE id=$1`, id)
	return scanGenerationTask(row)
}

func scanGenerationTask(row pgx.Row) (*models.GenerationTask, error) {
	var t models.GenerationTask
	var result []byte
	err := row.Scan(&t.ID, &t.UserID, &t.Status, &t.Prompt, &t.NegativePrompt, &t.Width, &t.Height,
		&t.NumImages, &t.Seed, &t.Error, &result, &t.QueueTaskID, &t.CreatedAt, &t.StartedAt, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Result = result
	return &t, nil
}

// MarkGenerationProcessing is the pending->processing transition. It is
// conditional on the current status so a redelivered STARTED event from
// the broker never clobbers a terminal row.
func (s *Store) MarkGenerationProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE generation_tasks SET status='processing', started_at=COALESCE(started_at, $2)
		 WHERE id=$1 AND status IN ('pending','processing')`, id, startedAt)
	return err
}

// CompleteGeneration performs the terminal write and the Image row
// insertions in one transaction, guarded by a conditional status update so
// concurrent pollers cannot double-insert images. Returns the newly
// created images (empty if another caller already completed the task).
func (s *Store) CompleteGeneration(ctx context.Context, id uuid.UUID, result models.TaskResult, completedAt time.Time) ([]models.Image, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE generation_tasks SET status='completed', result=$2, completed_at=$3
		 WHERE id=$1 AND status IN ('pending','processing')`, id, raw, completedAt)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// Already terminal: another poller won the race. Nothing to insert.
		return nil, tx.Commit(ctx)
	}

	var task models.GenerationTask
	if err := tx.QueryRow(ctx, `SELECT user_id, prompt, negative_prompt FROM generation_tasks WHERE id=$1`, id).
		Scan(&task.UserID, &task.Prompt, &task.NegativePrompt); err != nil {
		return nil, err
	}

	images := make([]models.Image, 0, len(result.Images))
	for _, ri := range result.Images {
		img := models.Image{
			ID:             ri.ID,
			OwnerID:        task.UserID,
			TaskID:         &id,
			ObjectName:     ri.ObjectName,
			URL:            ri.URL,
			Prompt:         task.Prompt,
			NegativePrompt: task.NegativePrompt,
			Width:          ri.Width,
			Height:         ri.Height,
			Seed:           ri.Seed,
			CreatedAt:      completedAt,
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO images (id, owner_id, task_id, object_name, url, prompt, negative_prompt, width, height, seed, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			 ON CONFLICT (task_id, id) DO NOTHING`,
			img.ID, img.OwnerID, img.TaskID, img.ObjectName, img.URL, img.Prompt, img.NegativePrompt,
			img.Width, img.Height, img.Seed, img.CreatedAt)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	return images, tx.Commit(ctx)
}

func (s *Store) FailGeneration(ctx context.Context, id uuid.UUID, errMsg string, completedAt time.Time) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE generation_tasks SET status='failed', error=$2, completed_at=$3
		 WHERE id=$1 AND status IN ('pending','processing')`, id, errMsg, completedAt)
	return err
}

// --- Inpaint tasks ---

func (s *Store) CreateInpaintTask(ctx context.Context, t *models.InpaintTask) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO inpaint_tasks
		 (id, user_id, status, original_image_id, prompt, negative_prompt, strength, guidance_scale, steps, seed, queue_task_id, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		t.ID, t.UserID, t.Status, t.OriginalImageID, t.Prompt, t.NegativePrompt, t.Strength,
		t.GuidanceScale, t.Steps, t.Seed, t.QueueTaskID, t.CreatedAt)
	return err
}

func (s *Store) SetInpaintQueueHandle(ctx context.Context, id uuid.UUID, handle string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE inpaint_tasks SET queue_task_id=$2 WHERE id=$1`, id, handle)
	return err
}

func (s *Store) GetInpaintTask(ctx context.Context, id uuid.UUID) (*models.InpaintTask, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT id, user_id, status, original_image_id, prompt, negative_prompt, strength, guidance_scale,
		        steps, seed, mask_object_name, result, error, queue_task_id, created_at, started_at, completed_at
		 FROM inpaint_tasks WHERE id=$1`, id)
	var t models.InpaintTask
	var result []byte
	err := row.Scan(&t.ID, &t.UserID, &t.Status, &t.OriginalImageID, &t.Prompt, &t.NegativePrompt,
		&t.Strength, &t.GuidanceScale, &t.Steps, &t.Seed, &t.MaskObjectName, &result, &t.Error,
		&t.QueueTaskID, &t.CreatedAt, &t.StartedAt, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Result = result
	return &t, nil
}

func (s *Store) MarkInpaintProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE inpaint_tasks SET status='processing', started_at=COALESCE(started_at, $2)
		 WHERE id=$1 AND status IN ('pending','processing')`, id, startedAt)
	return err
}

// CompleteInpaint mirrors CompleteGeneration but also stores the processed
// mask object name and writes an EditHistory row, all in one transaction.
func (s *Store) CompleteInpaint(ctx context.Context, id uuid.UUID, result models.TaskResult, completedAt time.Time) ([]models.Image, *models.EditHistory, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, nil, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE inpaint_tasks SET status='completed', result=$2, mask_object_name=$3, completed_at=$4
		 WHERE id=$1 AND status IN ('pending','processing')`, id, raw, result.MaskObjectName, completedAt)
	if err != nil {
		return nil, nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil, tx.Commit(ctx)
	}

	var task models.InpaintTask
	if err := tx.QueryRow(ctx,
		`SELECT user_id, original_image_id, prompt, negative_prompt, strength, guidance_scale, steps, seed
		 FROM inpaint_tasks WHERE id=$1`, id).
		Scan(&task.UserID, &task.OriginalImageID, &task.Prompt, &task.NegativePrompt,
			&task.Strength, &task.GuidanceScale, &task.Steps, &task.Seed); err != nil {
		return nil, nil, err
	}

	images := make([]models.Image, 0, len(result.Images))
	var history *models.EditHistory
	for _, ri := range result.Images {
		img := models.Image{
			ID:             ri.ID,
			OwnerID:        task.UserID,
			TaskID:         &id,
			ObjectName:     ri.ObjectName,
			URL:            ri.URL,
			Prompt:         task.Prompt,
			NegativePrompt: task.NegativePrompt,
			Width:          ri.Width,
			Height:         ri.Height,
			Seed:           ri.Seed,
			CreatedAt:      completedAt,
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO images (id, owner_id, task_id, object_name, url, prompt, negative_prompt, width, height, seed, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			 ON CONFLICT (task_id, id) DO NOTHING`,
			img.ID, img.OwnerID, img.TaskID, img.ObjectName, img.URL, img.Prompt, img.NegativePrompt,
			img.Width, img.Height, img.Seed, img.CreatedAt); err != nil {
			return nil, nil, err
		}
		images = append(images, img)

		if history == nil {
			h := &models.EditHistory{
				ID:              uuid.New(),
				UserID:          task.UserID,
				OriginalImageID: task.OriginalImageID,
				EditedImageID:   img.ID,
				InpaintTaskID:   &id,
				EditType:        models.EditInpaint,
				Prompt:          task.Prompt,
				NegativePrompt:  task.NegativePrompt,
				Strength:        task.Strength,
				MaskObjectName:  result.MaskObjectName,
				CreatedAt:       completedAt,
				Metadata: map[string]any{
					"guidance_scale": task.GuidanceScale,
					"steps":          task.Steps,
					"seed":           task.Seed,
				},
			}
			metaRaw, merr := json.Marshal(h.Metadata)
			if merr != nil {
				return nil, nil, merr
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO edit_history
				 (id, user_id, original_image_id, edited_image_id, inpaint_task_id, edit_type, prompt, negative_prompt, strength, mask_object_name, metadata, created_at)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
				 ON CONFLICT (edited_image_id) DO NOTHING`,
				h.ID, h.UserID, h.OriginalImageID, h.EditedImageID, h.InpaintTaskID, h.EditType,
				h.Prompt, h.NegativePrompt, h.Strength, h.MaskObjectName, metaRaw, h.CreatedAt); err != nil {
				return nil, nil, err
			}
			history = h
		}
	}

	return images, history, tx.Commit(ctx)
}

func (s *Store) FailInpaint(ctx context.Context, id uuid.UUID, errMsg string, completedAt time.Time) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE inpaint_tasks SET status='failed', error=$2, completed_at=$3
		 WHERE id=$1 AND status IN ('pending','processing')`, id, errMsg, completedAt)
	return err
}
