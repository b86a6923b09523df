// internal/domain/execution.go
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExecutionNotFound is returned when an execution record does not exist.
var ErrExecutionNotFound = errors.New("execution not found")

// ExecutionStatus defines the status of a task execution.
type ExecutionStatus string

const (
	ExecutionStatusQueued   ExecutionStatus = "queued"
	ExecutionStatusRunning  ExecutionStatus = "running"
	ExecutionStatusSuccess  ExecutionStatus = "success"
	ExecutionStatusFailed   ExecutionStatus = "failed"
	ExecutionStatusRejected ExecutionStatus = "rejected"
)

// Finished reports whether the status is terminal.
func (s ExecutionStatus) Finished() bool {
	switch s {
	case ExecutionStatusSuccess, ExecutionStatusFailed, ExecutionStatusRejected:
		return true
	}
	return false
}

// ExecutionRecord represents a single run of a task.
type ExecutionRecord struct {
	ID          string          `json:"id"`                  // Unique ID for this run
	TaskName    string          `json:"task_name"`           // Name of the task being executed
	SubmittedAt time.Time       `json:"submitted_at"`        // When the job was handed to the pool
	StartTime   time.Time       `json:"start_time,omitzero"` // When a worker picked it up
	EndTime     time.Time       `json:"end_time,omitzero"`   // When the run ended
	Status      ExecutionStatus `json:"status"`              // queued, running, success, failed, rejected
	Output      string          `json:"output,omitempty"`    // Standard output or response body
	Error       string          `json:"error,omitempty"`     // Error message if the run failed
	WorkerID    string          `json:"worker_id,omitempty"` // Host that ran the task
}

// Validate checks if the execution record is valid.
func (r *ExecutionRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("execution record ID cannot be empty")
	}
	if r.TaskName == "" {
		return fmt.Errorf("execution record task name cannot be empty")
	}
	if r.SubmittedAt.IsZero() {
		return fmt.Errorf("execution record submission time cannot be zero")
	}
	if r.Status == "" {
		return fmt.Errorf("execution record status cannot be empty")
	}
	return nil
}

// ExecutionRepository defines the interface for persisting and retrieving execution records.
type ExecutionRepository interface {
	// Save persists a single execution record.
	Save(ctx context.Context, record *ExecutionRecord) error
	// ListByTaskName retrieves historical execution records for a specific task, with pagination.
	// Records are returned in reverse chronological order (newest first).
	ListByTaskName(ctx context.Context, taskName string, page, pageSize int) ([]*ExecutionRecord, error)
	// Get retrieves a single execution record by its task name and execution ID.
	Get(ctx context.Context, taskName, executionID string) (*ExecutionRecord, error)
}

// PageBounds converts a 1-based page and a page size into slice bounds over
// total items. Out of range pages yield an empty range.
func PageBounds(page, pageSize, total int) (start, end int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return 0, 0
	}
	// Compare before multiplying so huge pages cannot overflow.
	if page-1 > total/pageSize {
		return total, total
	}
	start = (page - 1) * pageSize
	end = min(start+pageSize, total)
	return start, end
}
