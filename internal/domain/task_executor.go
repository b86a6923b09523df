package domain

import "context"

// TaskExecutor defines the interface for executing a task's action.
type TaskExecutor interface {
	Execute(ctx context.Context, task *Task) (output string, err error)
}
