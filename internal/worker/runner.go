// internal/worker/runner.go
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jobpool/internal/domain"
	"jobpool/internal/metrics"
	"jobpool/internal/pool"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Submitter accepts jobs for asynchronous execution. *pool.Pool implements it.
type Submitter interface {
	Submit(job pool.Job) error
}

// Runner turns task runs into pool jobs and keeps their execution history.
type Runner struct {
	pool      Submitter
	executors map[domain.ExecutorType]domain.TaskExecutor
	execRepo  domain.ExecutionRepository
	workerID  string
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewRunner creates a Runner. workerID is stored on every execution record,
// typically the host name.
func NewRunner(p Submitter, executors map[domain.ExecutorType]domain.TaskExecutor, execRepo domain.ExecutionRepository, workerID string, m *metrics.Metrics, logger *slog.Logger) *Runner {
	return &Runner{
		pool:      p,
		executors: executors,
		execRepo:  execRepo,
		workerID:  workerID,
		metrics:   m,
		logger:    logger.With("component", "runner"),
		tracer:    otel.Tracer("jobpool-runner"),
	}
}

var _ domain.Dispatcher = (*Runner)(nil)

// Dispatch records a queued execution and submits the task to the pool. The
// execution ID is returned even when submission fails, in which case the
// record is marked rejected.
func (r *Runner) Dispatch(ctx context.Context, task *domain.Task) (string, error) {
	ctx, span := r.tracer.Start(ctx, "runner.Dispatch",
		trace.WithAttributes(attribute.String("task.name", task.Name)))
	defer span.End()

	executionID := uuid.NewString()
	span.SetAttributes(attribute.String("execution.id", executionID))

	record := &domain.ExecutionRecord{
		ID:          executionID,
		TaskName:    task.Name,
		SubmittedAt: time.Now(),
		Status:      domain.ExecutionStatusQueued,
	}
	if err := r.execRepo.Save(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save queued execution record")
		return "", fmt.Errorf("save execution record: %w", err)
	}

	// The job owns its own copies; record is not touched here after Submit.
	snapshot := *task
	queued := *record
	parent := span.SpanContext()
	err := r.pool.Submit(func() {
		r.run(parent, &snapshot, &queued)
	})
	if err != nil {
		record.Status = domain.ExecutionStatusRejected
		record.EndTime = time.Now()
		record.Error = err.Error()
		if saveErr := r.execRepo.Save(ctx, record); saveErr != nil {
			r.logger.Error("failed to save rejected execution record", "execution_id", executionID, "error", saveErr)
		}
		r.metrics.RecordTaskExecution(task.Name, string(domain.ExecutionStatusRejected))
		span.RecordError(err)
		span.SetStatus(codes.Error, "pool rejected task")
		return executionID, fmt.Errorf("submit task %s: %w", task.Name, err)
	}

	r.logger.Info("task dispatched", "task_name", task.Name, "execution_id", executionID)
	return executionID, nil
}

// run executes on a pool worker.
func (r *Runner) run(parent trace.SpanContext, task *domain.Task, record *domain.ExecutionRecord) {
	ctx, span := r.tracer.Start(
		context.Background(),
		"runner.Run",
		trace.WithLinks(trace.Link{SpanContext: parent}),
		trace.WithAttributes(attribute.String("task.name", task.Name), attribute.String("execution.id", record.ID)),
	)
	defer span.End()

	logger := r.logger.With("task_name", task.Name, "execution_id", record.ID)

	record.StartTime = time.Now()
	record.Status = domain.ExecutionStatusRunning
	record.WorkerID = r.workerID
	if err := r.execRepo.Save(ctx, record); err != nil {
		logger.Error("failed to save running execution record", "error", err)
		span.RecordError(err)
	}

	// A panicking executor still leaves a finished record. The panic is
	// re-raised so the pool reports it as a job fault.
	defer func() {
		if v := recover(); v != nil {
			r.finish(ctx, span, logger, task, record, fmt.Errorf("panic: %v", v))
			panic(v)
		}
	}()

	executor, ok := r.executors[task.ExecutorType]
	if !ok {
		r.finish(ctx, span, logger, task, record, fmt.Errorf("no executor found for type: %s", task.ExecutorType))
		return
	}

	logger.Info("executing task")
	output, err := executor.Execute(ctx, task)
	record.Output = output
	r.finish(ctx, span, logger, task, record, err)
}

func (r *Runner) finish(ctx context.Context, span trace.Span, logger *slog.Logger, task *domain.Task, record *domain.ExecutionRecord, execErr error) {
	record.EndTime = time.Now()
	if execErr != nil {
		record.Status = domain.ExecutionStatusFailed
		record.Error = execErr.Error()
		span.RecordError(execErr)
		span.SetStatus(codes.Error, "task execution failed")
		logger.Error("task execution failed", "error", execErr)
	} else {
		record.Status = domain.ExecutionStatusSuccess
		span.SetStatus(codes.Ok, "task execution successful")
		logger.Info("task execution succeeded", "duration", record.EndTime.Sub(record.StartTime))
	}
	r.metrics.RecordTaskExecution(task.Name, string(record.Status))

	if err := r.execRepo.Save(ctx, record); err != nil {
		logger.Error("failed to save final execution record", "error", err)
		span.RecordError(err)
	}
}
