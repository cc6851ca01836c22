package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zimage/orchestrator/internal/models"
)

func (s *Store) GetImage(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT id, owner_id, task_id, object_name, url, thumbnail_url, prompt, negative_prompt,
		        width, height, seed, favorite, folder, metadata, created_at
		 FROM images WHERE id=$1`, id)
	return scanImage(row)
}

func scanImage(row pgx.Row) (*models.Image, error) {
	var img models.Image
	var meta []byte
	err := row.Scan(&img.ID, &img.OwnerID, &img.TaskID, &img.ObjectName, &img.URL, &img.ThumbnailURL,
		&img.Prompt, &img.NegativePrompt, &img.Width, &img.Height, &img.Seed, &img.Favorite, &img.Folder,
		&meta, &img.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &img.Metadata)
	}
	return &img, nil
}

// ListGallery returns a user's images newest-first, optionally restricted
// to favorites and/or filtered by a prompt substring search.
func (s *Store) ListGallery(ctx context.Context, owner uuid.UUID, page, limit int, favoritesOnly bool, search string) ([]models.Image, int, error) {
	offset := (page - 1) * limit
	rows, err := s.Pool.Query(ctx,
		`SELECT id, owner_id, task_id, object_name, url, thumbnail_url, prompt, negative_prompt,
		        width, height, seed, favorite, folder, metadata, created_at
		 FROM images
		 WHERE owner_id=$1
		   AND ($2::bool = false OR favorite = true)
		   AND ($3 = '' OR prompt ILIKE '%' || $3 || '%')
		 ORDER BY created_at DESC
		 LIMIT $4 OFFSET $5`,
		owner, favoritesOnly, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM images
		 WHERE owner_id=$1 AND ($2::bool = false OR favorite = true) AND ($3 = '' OR prompt ILIKE '%' || $3 || '%')`,
		owner, favoritesOnly, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

// ListImagesByTask returns the images materialized for a single completed
// task, ordered by created_at. All images of one task share the same
// created_at, so their order relative to each other is not defined and need
// not match the order of the result payload.
func (s *Store) ListImagesByTask(ctx context.Context, taskID uuid.UUID) ([]models.Image, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, owner_id, task_id, object_name, url, thumbnail_url, prompt, negative_prompt,
		        width, height, seed, favorite, folder, metadata, created_at
		 FROM images WHERE task_id=$1 ORDER BY created_at ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *img)
	}
	return out, rows.Err()
}

func (s *Store) SetFavorite(ctx context.Context, owner, id uuid.UUID, favorite bool) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE images SET favorite=$3 WHERE id=$1 AND owner_id=$2`, id, owner, favorite)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteImage(ctx context.Context, owner, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM images WHERE id=$1 AND owner_id=$2`, id, owner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
