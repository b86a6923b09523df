package domain

import (
	"fmt"
	"time"
)

// ExecutorType defines the type of the task executor.
type ExecutorType string

const (
	ExecutorTypeHTTP  ExecutorType = "http"
	ExecutorTypeShell ExecutorType = "shell"
)

// TaskExecutorSpec describes the action performed when a task runs.
type TaskExecutorSpec struct {
	URL     string `json:"url,omitempty"`     // For HTTP executor
	Method  string `json:"method,omitempty"`  // For HTTP executor
	Command string `json:"command,omitempty"` // For Shell executor
}

// RetryPolicy defines the retry strategy for a task upon failure.
type RetryPolicy struct {
	MaxRetries int           `json:"max_retries"`
	Backoff    time.Duration `json:"backoff"`
}

// Task is a named unit of work that can be run on demand or on a cron schedule.
// Every run becomes one job in the worker pool.
type Task struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	CronExpr     string           `json:"cron_expr,omitempty"` // Empty for on-demand tasks
	ExecutorType ExecutorType     `json:"executor_type"`
	Executor     TaskExecutorSpec `json:"executor"`
	RetryPolicy  *RetryPolicy     `json:"retry_policy,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Scheduled reports whether the task has a cron schedule.
func (t *Task) Scheduled() bool {
	return t.CronExpr != ""
}

// Validate checks if the task definition is valid.
func (t *Task) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	switch t.ExecutorType {
	case ExecutorTypeHTTP:
		if t.Executor.URL == "" {
			return fmt.Errorf("executor URL cannot be empty for http task")
		}
		if t.Executor.Method == "" {
			t.Executor.Method = "GET"
		}
	case ExecutorTypeShell:
		if t.Executor.Command == "" {
			return fmt.Errorf("executor command cannot be empty for shell task")
		}
	default:
		return fmt.Errorf("invalid executor type: %s", t.ExecutorType)
	}
	if t.RetryPolicy != nil && t.RetryPolicy.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}
