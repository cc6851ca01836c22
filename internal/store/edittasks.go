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

// CreateEditTask persists a new segmentation/background/style job row.
func (s *Store) CreateEditTask(ctx context.Context, t *models.EditTask) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO edit_tasks (id, user_id, kind, status, original_image_id, params, queue_task_id, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.UserID, t.Kind, t.Status, t.OriginalImageID, t.Params, t.QueueTaskID, t.CreatedAt)
	return err
}

func (s *Store) SetEditTaskQueueHandle(ctx context.Context, id uuid.UUID, handle string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE edit_tasks SET queue_task_id=$2 WHERE id=$1`, id, handle)
	return err
}

func (s *Store) GetEditTask(ctx context.Context, id uuid.UUID) (*models.EditTask, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT id, user_id, kind, status, original_image_id, params, mask_object_name, result,
		        error, queue_task_id, created_at, started_at, completed_at
		 FROM edit_tasks WHERE id=$1`, id)
	return scanEditTask(row)
}

func scanEditTask(row pgx.Row) (*models.EditTask, error) {
	var t models.EditTask
	var result []byte
	err := row.Scan(&t.ID, &t.UserID, &t.Kind, &t.Status, &t.OriginalImageID, &t.Params, &t.MaskObjectName,
		&result, &t.Error, &t.QueueTaskID, &t.CreatedAt, &t.StartedAt, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Result = result
	return &t, nil
}

func (s *Store) MarkEditTaskProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE edit_tasks SET status='processing', started_at=COALESCE(started_at, $2)
		 WHERE id=$1 AND status IN ('pending','processing')`, id, startedAt)
	return err
}

// CompleteEditTask mirrors CompleteInpaint: one transaction, a conditional
// terminal update, idempotent image inserts, and a single EditHistory row
// classified by the task's kind.
func (s *Store) CompleteEditTask(ctx context.Context, id uuid.UUID, result models.TaskResult, completedAt time.Time) ([]models.Image, *models.EditHistory, error) {
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
		`UPDATE edit_tasks SET status='completed', result=$2, mask_object_name=$3, completed_at=$4
		 WHERE id=$1 AND status IN ('pending','processing')`, id, raw, result.MaskObjectName, completedAt)
	if err != nil {
		return nil, nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil, tx.Commit(ctx)
	}

	var task models.EditTask
	if err := tx.QueryRow(ctx, `SELECT user_id, kind, original_image_id FROM edit_tasks WHERE id=$1`, id).
		Scan(&task.UserID, &task.Kind, &task.OriginalImageID); err != nil {
		return nil, nil, err
	}

	images := make([]models.Image, 0, len(result.Images))
	var history *models.EditHistory
	for _, ri := range result.Images {
		img := models.Image{
			ID:         ri.ID,
			OwnerID:    task.UserID,
			TaskID:     &id,
			ObjectName: ri.ObjectName,
			URL:        ri.URL,
			Width:      ri.Width,
			Height:     ri.Height,
			Seed:       ri.Seed,
			CreatedAt:  completedAt,
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO images (id, owner_id, task_id, object_name, url, width, height, seed, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			 ON CONFLICT (task_id, id) DO NOTHING`,
			img.ID, img.OwnerID, img.TaskID, img.ObjectName, img.URL, img.Width, img.Height, img.Seed, img.CreatedAt); err != nil {
			return nil, nil, err
		}
		images = append(images, img)

		if history == nil {
			h := &models.EditHistory{
				ID:              uuid.New(),
				UserID:          task.UserID,
				OriginalImageID: task.OriginalImageID,
				EditedImageID:   img.ID,
				EditType:        models.EditTypeForKind(task.Kind),
				MaskObjectName:  result.MaskObjectName,
				CreatedAt:       completedAt,
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO edit_history
				 (id, user_id, original_image_id, edited_image_id, edit_type, mask_object_name, created_at)
				 VALUES ($1,$2,$3,$4,$5,$6,$7)
				 ON CONFLICT (edited_image_id) DO NOTHING`,
				h.ID, h.UserID, h.OriginalImageID, h.EditedImageID, h.EditType, h.MaskObjectName, h.CreatedAt); err != nil {
				return nil, nil, err
			}
			history = h
		}
	}

	return images, history, tx.Commit(ctx)
}

func (s *Store) FailEditTask(ctx context.Context, id uuid.UUID, errMsg string, completedAt time.Time) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE edit_tasks SET status='failed', error=$2, completed_at=$3
		 WHERE id=$1 AND status IN ('pending','processing')`, id, errMsg, completedAt)
	return err
}
