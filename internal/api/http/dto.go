package http

import (
	"net/http"
	"time"

	"jobpool/internal/domain"
)

// ExecutorRequest is the DTO for executor configuration.
type ExecutorRequest struct {
	URL     string `json:"url" validate:"omitempty,url"`
	Method  string `json:"method" validate:"omitempty,oneof=GET POST PUT DELETE PATCH HEAD"`
	Command string `json:"command"`
}

// RetryPolicyRequest is the DTO for retry policy configuration.
type RetryPolicyRequest struct {
	MaxRetries int    `json:"max_retries" validate:"gte=0,lte=10"`
	Backoff    string `json:"backoff" validate:"omitempty,duration"`
}

// SaveTaskRequest is the Data Transfer Object for creating/updating a task.
type SaveTaskRequest struct {
	Name         string              `json:"name" validate:"required,min=1,max=128,excludesall=/"`
	CronExpr     string              `json:"cron_expr" validate:"omitempty,cron"`
	ExecutorType string              `json:"executor_type" validate:"required,oneof=http shell"`
	Executor     ExecutorRequest     `json:"executor"`
	RetryPolicy  *RetryPolicyRequest `json:"retry_policy,omitempty" validate:"omitempty"`
}

// ToDomainTask converts a SaveTaskRequest DTO to a domain.Task object.
func (r *SaveTaskRequest) ToDomainTask() *domain.Task {
	var retryPolicy *domain.RetryPolicy
	if r.RetryPolicy != nil {
		backoff, _ := time.ParseDuration(r.RetryPolicy.Backoff)
		retryPolicy = &domain.RetryPolicy{
			MaxRetries: r.RetryPolicy.MaxRetries,
			Backoff:    backoff,
		}
	}

	// Normalize executor based on type
	executor := domain.TaskExecutorSpec{}
	executorType := domain.ExecutorType(r.ExecutorType)
	switch executorType {
	case domain.ExecutorTypeHTTP:
		executor.URL = r.Executor.URL
		executor.Method = r.Executor.Method
		if executor.Method == "" {
			executor.Method = http.MethodGet
		}
	case domain.ExecutorTypeShell:
		executor.Command = r.Executor.Command
	}

	return &domain.Task{
		Name:         r.Name,
		CronExpr:     r.CronExpr,
		ExecutorType: executorType,
		Executor:     executor,
		RetryPolicy:  retryPolicy,
	}
}

// RunResponse is returned when a task run is dispatched.
type RunResponse struct {
	ExecutionID string `json:"execution_id"`
}
