// internal/domain/dispatcher.go
package domain

import "context"

// Dispatcher hands a task run to the worker pool and returns the execution ID
// assigned to that run.
type Dispatcher interface {
	Dispatch(ctx context.Context, task *Task) (executionID string, err error)
}
