package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"jobpool/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// maxBodyBytes caps how much of the response body is kept as output.
const maxBodyBytes = 1024

// StatusError reports a non-2xx/3xx response.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	if e.StatusCode >= 500 {
		return fmt.Sprintf("http request returned 5xx server error: %s", e.Status)
	}
	return fmt.Sprintf("http request returned 4xx client error: %s", e.Status)
}

type httpTaskExecutor struct {
	client *http.Client
	sleep  func(context.Context, time.Duration) error
	tracer trace.Tracer
}

func NewHttpTaskExecutor(timeout time.Duration) domain.TaskExecutor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &httpTaskExecutor{
		client: &http.Client{Timeout: timeout},
		sleep:  sleepContext,
		tracer: otel.Tracer("jobpool-http-executor"),
	}
}

// Execute issues the task's HTTP request, retrying timeouts and 5xx responses
// according to the task's retry policy.
func (e *httpTaskExecutor) Execute(ctx context.Context, task *domain.Task) (string, error) {
	ctx, span := e.tracer.Start(ctx, "executor.http.Execute",
		trace.WithAttributes(
			attribute.String("task.name", task.Name),
			attribute.String("http.url", task.Executor.URL),
			attribute.String("http.method", task.Executor.Method),
		))
	defer span.End()

	if task.RetryPolicy == nil || task.RetryPolicy.MaxRetries == 0 {
		output, err := e.doExecute(ctx, task)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "http request failed")
		}
		return output, err
	}

	var lastErr error
	var output string
	for i := 0; i <= task.RetryPolicy.MaxRetries; i++ {
		var err error
		output, err = e.doExecute(ctx, task)
		if err == nil {
			return output, nil
		}
		lastErr = err
		span.AddEvent("attempt_failed", trace.WithAttributes(attribute.Int("attempt", i+1)))

		if !retriable(err) {
			span.SetStatus(codes.Error, "non-retriable error")
			return output, fmt.Errorf("non-retriable error on attempt %d: %w", i+1, err)
		}
		if i == task.RetryPolicy.MaxRetries {
			break
		}
		if err := e.sleep(ctx, task.RetryPolicy.Backoff); err != nil {
			return output, err
		}
	}

	span.SetStatus(codes.Error, "retries exhausted")
	return output, fmt.Errorf("task failed after %d retries: %w", task.RetryPolicy.MaxRetries, lastErr)
}

func retriable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode >= 500
}

// doExecute performs a single HTTP request execution.
func (e *httpTaskExecutor) doExecute(ctx context.Context, task *domain.Task) (string, error) {
	req, err := http.NewRequestWithContext(ctx, task.Executor.Method, task.Executor.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode >= 400 {
		return string(bodyBytes), &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return string(bodyBytes), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
