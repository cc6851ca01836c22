// Package models holds the durable data types of the job orchestration plane:
// users, the task types, generated images and edit history.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status is one of the two end states a task
// can never transition out of.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TaskKind enumerates the closed set of GPU job types the dispatcher knows
// how to execute. The queue payload always carries one of these as its tag.
type TaskKind string

const (
	KindGenerate             TaskKind = "generate"
	KindInpaint              TaskKind = "inpaint"
	KindSAMPoint             TaskKind = "sam_point"
	KindSAMBox               TaskKind = "sam_box"
	KindSAMAuto              TaskKind = "sam_auto"
	KindBackgroundRemove     TaskKind = "background_remove"
	KindBackgroundReplaceImg TaskKind = "background_replace_image"
	KindBackgroundReplaceCol TaskKind = "background_replace_color"
	KindBackgroundMask       TaskKind = "background_mask"
	KindStyleApply           TaskKind = "style_apply"
)

// GenerationTask is the text-to-image job row. Once it reaches a terminal
// status its fields never mutate again.
type GenerationTask struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Status          TaskStatus `json:"status"`
	Prompt          string     `json:"prompt"`
	NegativePrompt  string     `json:"negative_prompt,omitempty"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	NumImages       int        `json:"num_images"`
	Seed            *int64     `json:"seed,omitempty"`
	Error           string     `json:"error,omitempty"`
	Result          []byte     `json:"-"` // raw JSON document, nil until completed
	QueueTaskID     string     `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// InpaintTask is the masked-edit job row.
type InpaintTask struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	Status           TaskStatus `json:"status"`
	OriginalImageID  uuid.UUID  `json:"original_image_id"`
	Prompt           string     `json:"prompt"`
	NegativePrompt   string     `json:"negative_prompt,omitempty"`
	Strength         float64    `json:"strength"`
	GuidanceScale    float64    `json:"guidance_scale"`
	Steps            int        `json:"steps"`
	Seed             *int64     `json:"seed,omitempty"`
	MaskObjectName   string     `json:"-"`
	Result           []byte     `json:"-"`
	Error            string     `json:"error,omitempty"`
	QueueTaskID      string     `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// EditTask is the generic job row for the segmentation, background and
// style-transfer task kinds, which share a single original-image-in,
// image-or-mask-out shape and differ only in their typed parameter set.
// GenerationTask and InpaintTask get dedicated rows because their
// parameters are part of the documented data model; these share one.
type EditTask struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Kind            TaskKind        `json:"kind"`
	Status          TaskStatus      `json:"status"`
	OriginalImageID uuid.UUID       `json:"original_image_id"`
	Params          json.RawMessage `json:"params"`
	MaskObjectName  string          `json:"-"`
	Result          []byte          `json:"-"`
	Error           string          `json:"error,omitempty"`
	QueueTaskID     string          `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// EditTypeForKind maps a task kind handled through EditTask to the
// EditHistory classification it produces on completion.
func EditTypeForKind(kind TaskKind) EditType {
	switch kind {
	case KindSAMPoint, KindSAMBox, KindSAMAuto:
		return EditSegment
	case KindStyleApply:
		return EditStyle
	default:
		return EditBackground
	}
}

// Image is a stored generated or edited artifact. Created exactly once per
// result entry by the status reconciler.
type Image struct {
	ID             uuid.UUID      `json:"id"`
	OwnerID        uuid.UUID      `json:"owner_id"`
	TaskID         *uuid.UUID     `json:"task_id,omitempty"`
	ObjectName     string         `json:"object_name"`
	URL            string         `json:"url"`
	ThumbnailURL   string         `json:"thumbnail_url,omitempty"`
	Prompt         string         `json:"prompt,omitempty"`
	NegativePrompt string         `json:"negative_prompt,omitempty"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	Seed           *int64         `json:"seed,omitempty"`
	Favorite       bool           `json:"favorite"`
	Folder         string         `json:"folder,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

type EditType string

const (
	EditInpaint    EditType = "inpaint"
	EditBackground EditType = "background"
	EditStyle      EditType = "style"
	EditSegment    EditType = "segment"
)

// EditHistory records one completed edit so it can later be replayed
// against a new target image.
type EditHistory struct {
	ID              uuid.UUID      `json:"id"`
	UserID          uuid.UUID      `json:"user_id"`
	OriginalImageID uuid.UUID      `json:"original_image_id"`
	EditedImageID   uuid.UUID      `json:"edited_image_id"`
	InpaintTaskID   *uuid.UUID     `json:"inpaint_task_id,omitempty"`
	EditType        EditType       `json:"edit_type"`
	Prompt          string         `json:"prompt,omitempty"`
	NegativePrompt  string         `json:"negative_prompt,omitempty"`
	Strength        float64        `json:"strength,omitempty"`
	MaskObjectName  string         `json:"mask_object_name,omitempty"`
	ThumbnailURL    string         `json:"thumbnail_url,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// ResultImage is one entry of a task's result payload, as written by the
// worker and read back by the reconciler.
type ResultImage struct {
	ID         uuid.UUID `json:"id"`
	URL        string    `json:"url"`
	ObjectName string    `json:"object_name"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Seed       *int64    `json:"seed,omitempty"`
}

// TaskResult is the sole payload shape the worker ever writes back through
// the queue. It must be idempotent if the same task is replayed.
type TaskResult struct {
	TaskID         string        `json:"task_id"`
	Status         string        `json:"status"` // completed | failed
	Images         []ResultImage `json:"images,omitempty"`
	MaskObjectName string        `json:"mask_object_name,omitempty"`
	Error          string        `json:"error,omitempty"`
}
