package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zimage/orchestrator/internal/models"
)

func (s *Store) GetEditHistory(ctx context.Context, id uuid.UUID) (*models.EditHistory, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT id, user_id, original_image_id, edited_image_id, inpaint_task_id, edit_type,
		        prompt, negative_prompt, strength, mask_object_name, thumbnail_url, metadata, created_at
		 FROM edit_history WHERE id=$1`, id)
	return scanHistory(row)
}

func scanHistory(row pgx.Row) (*models.EditHistory, error) {
	var h models.EditHistory
	var meta []byte
	err := row.Scan(&h.ID, &h.UserID, &h.OriginalImageID, &h.EditedImageID, &h.InpaintTaskID, &h.EditType,
		&h.Prompt, &h.NegativePrompt, &h.Strength, &h.MaskObjectName, &h.ThumbnailURL, &meta, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &h.Metadata)
	}
	return &h, nil
}

func (s *Store) ListEditHistory(ctx context.Context, owner uuid.UUID, page, limit int) ([]models.EditHistory, error) {
	offset := (page - 1) * limit
	rows, err := s.Pool.Query(ctx,
		`SELECT id, user_id, original_image_id, edited_image_id, inpaint_task_id, edit_type,
		        prompt, negative_prompt, strength, mask_object_name, thumbnail_url, metadata, created_at
		 FROM edit_history WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		owner, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EditHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}
