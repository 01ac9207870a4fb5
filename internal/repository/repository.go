package repository

import (
	"context"
	"errors"

	"taskflow/internal/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("duplicate record")
	ErrStageOutOfRange = errors.New("stage out of range")
)

// UserStore menyimpan data user. Email unik di semua implementasi.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	SetRefreshToken(ctx context.Context, id string, token *string) error
	// FindRefreshToken always reads the backing store, never a cache.
	FindRefreshToken(ctx context.Context, id string) (*string, error)
	DeleteUser(ctx context.Context, id string) error
}

// TaskStore scopes every lookup by owner: a task id paired with the wrong
// owner id yields ErrNotFound. Stage changes are single atomic updates.
type TaskStore interface {
	CreateTask(ctx context.Context, t *models.Task) error
	FindTask(ctx context.Context, id, ownerID string) (*models.Task, error)
	ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, id, ownerID string, patch models.TaskPatch) (*models.Task, error)
	// ShiftStage adds delta to the stage, or fails with ErrStageOutOfRange
	// leaving the task untouched.
	ShiftStage(ctx context.Context, id, ownerID string, delta int) (*models.Task, error)
	SetStage(ctx context.Context, id, ownerID string, stage models.Stage) (*models.Task, error)
	DeleteTask(ctx context.Context, id, ownerID string) error
	DeleteTasksByOwner(ctx context.Context, ownerID string) error
}

// stageBounds returns the range the current stage must lie in for a shift
// by delta to stay on the board.
func stageBounds(delta int) (lo, hi models.Stage) {
	lo, hi = models.MinStage, models.MaxStage
	if delta < 0 {
		lo -= models.Stage(delta)
	} else {
		hi -= models.Stage(delta)
	}
	return lo, hi
}
