// Package store is the transactional Metadata Store Adapter: users,
// generation tasks, inpaint tasks, images and edit history, all backed by
// the shared PostgreSQL pool opened in internal/db.
package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps the connection pool with the query methods each component
// of the orchestration plane needs. It holds no state of its own beyond
// the pool, mirroring the teacher's thin service-over-pgxpool pattern.
type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// Schema is the DDL this adapter runs against. The apiserver executes it
// at startup; every statement is CREATE TABLE IF NOT EXISTS, so re-running
// it against an existing database is a no-op.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	name TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	is_active BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS generation_tasks (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id),
	status TEXT NOT NULL DEFAULT 'pending',
	prompt TEXT NOT NULL,
	negative_prompt TEXT NOT NULL DEFAULT '',
	width INT NOT NULL,
	height INT NOT NULL,
	num_images INT NOT NULL,
	seed BIGINT,
	error TEXT NOT NULL DEFAULT '',
	result JSONB,
	queue_task_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS inpaint_tasks (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id),
	status TEXT NOT NULL DEFAULT 'pending',
	original_image_id UUID NOT NULL,
	prompt TEXT NOT NULL,
	negative_prompt TEXT NOT NULL DEFAULT '',
	strength DOUBLE PRECISION NOT NULL DEFAULT 0.85,
	guidance_scale DOUBLE PRECISION NOT NULL DEFAULT 7.5,
	steps INT NOT NULL DEFAULT 30,
	seed BIGINT,
	mask_object_name TEXT NOT NULL DEFAULT '',
	result JSONB,
	error TEXT NOT NULL DEFAULT '',
	queue_task_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS edit_tasks (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id),
	kind TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	original_image_id UUID NOT NULL,
	params JSONB NOT NULL DEFAULT '{}',
	mask_object_name TEXT NOT NULL DEFAULT '',
	result JSONB,
	error TEXT NOT NULL DEFAULT '',
	queue_task_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS images (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL REFERENCES users(id),
	task_id UUID,
	object_name TEXT NOT NULL,
	url TEXT NOT NULL,
	thumbnail_url TEXT NOT NULL DEFAULT '',
	prompt TEXT NOT NULL DEFAULT '',
	negative_prompt TEXT NOT NULL DEFAULT '',
	width INT NOT NULL,
	height INT NOT NULL,
	seed BIGINT,
	favorite BOOLEAN NOT NULL DEFAULT false,
	folder TEXT NOT NULL DEFAULT '',
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (task_id, id)
);

CREATE TABLE IF NOT EXISTS edit_history (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id),
	original_image_id UUID NOT NULL,
	edited_image_id UUID NOT NULL,
	inpaint_task_id UUID,
	edit_type TEXT NOT NULL,
	prompt TEXT NOT NULL DEFAULT '',
	negative_prompt TEXT NOT NULL DEFAULT '',
	strength DOUBLE PRECISION NOT NULL DEFAULT 0,
	mask_object_name TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT NOT NULL DEFAULT '',
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (edited_image_id)
);
`
