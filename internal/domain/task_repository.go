package domain

import (
	"context"
	"errors"
)

// ErrTaskNotFound is a sentinel error returned when a task is not found.
var ErrTaskNotFound = errors.New("task not found")

// TaskRepository defines the interface for persisting and retrieving Task definitions.
type TaskRepository interface {
	Save(ctx context.Context, task *Task) error
	Delete(ctx context.Context, name string) error
	Get(ctx context.Context, name string) (*Task, error)
	List(ctx context.Context) ([]*Task, error)
}
