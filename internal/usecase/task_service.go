package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jobpool/internal/domain"
	"jobpool/internal/scheduler"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrInvalidTask wraps task definition errors so callers can tell them apart
// from storage failures.
var ErrInvalidTask = errors.New("invalid task")

// TaskService implements the task use cases: definition management, on-demand
// runs and execution history.
type TaskService struct {
	repo       domain.TaskRepository
	execRepo   domain.ExecutionRepository
	scheduler  domain.Schedular
	dispatcher domain.Dispatcher
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewTaskService creates a new TaskService instance.
func NewTaskService(repo domain.TaskRepository, execRepo domain.ExecutionRepository, scheduler domain.Schedular, dispatcher domain.Dispatcher, logger *slog.Logger) *TaskService {
	return &TaskService{
		repo:       repo,
		execRepo:   execRepo,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		logger:     logger.With("component", "task-service"),
		tracer:     otel.Tracer("jobpool-usecase"),
	}
}

// LoadSchedules registers every stored scheduled task with the scheduler. A
// task that fails to schedule is logged and skipped.
func (s *TaskService) LoadSchedules(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "service.LoadSchedules")
	defer span.End()

	tasks, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load tasks")
		return err
	}

	scheduled := 0
	for _, task := range tasks {
		if !task.Scheduled() {
			continue
		}
		if err := s.scheduler.AddTask(task); err != nil {
			s.logger.Error("failed to schedule stored task", "task_name", task.Name, "error", err)
			continue
		}
		scheduled++
	}
	span.SetAttributes(attribute.Int("tasks.scheduled", scheduled))
	s.logger.Info("loaded task schedules", "tasks", len(tasks), "scheduled", scheduled)
	return nil
}

// Save creates or updates a task and (re)schedules it.
func (s *TaskService) Save(ctx context.Context, task *domain.Task) error {
	ctx, span := s.tracer.Start(ctx, "service.Save")
	defer span.End()

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	if task.Scheduled() {
		if _, err := scheduler.Parser.Parse(task.CronExpr); err != nil {
			return fmt.Errorf("%w: cron expression: %v", ErrInvalidTask, err)
		}
	}

	now := time.Now()
	existing, err := s.repo.Get(ctx, task.Name)
	switch {
	case err == nil:
		task.ID = existing.ID
		task.CreatedAt = existing.CreatedAt
	case errors.Is(err, domain.ErrTaskNotFound):
		if task.ID == "" {
			task.ID = uuid.New().String()
		}
		task.CreatedAt = now
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to look up task")
		return err
	}
	task.UpdatedAt = now
	span.SetAttributes(attribute.String("task.id", task.ID), attribute.String("task.name", task.Name))

	if err := s.repo.Save(ctx, task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save task to repository")
		return err
	}

	if err := s.scheduler.AddTask(task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to add task to scheduler")
		return err
	}
	return nil
}

// Delete unschedules and removes a task. Its history is kept.
func (s *TaskService) Delete(ctx context.Context, name string) error {
	ctx, span := s.tracer.Start(ctx, "service.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("task.name", name))

	if err := s.scheduler.RemoveTask(name); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to remove task from scheduler")
		return err
	}

	if err := s.repo.Delete(ctx, name); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete task from repository")
		return err
	}
	return nil
}

func (s *TaskService) Get(ctx context.Context, name string) (*domain.Task, error) {
	ctx, span := s.tracer.Start(ctx, "service.Get")
	defer span.End()
	span.SetAttributes(attribute.String("task.name", name))

	task, err := s.repo.Get(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get task from repository")
	}
	return task, err
}

func (s *TaskService) List(ctx context.Context) ([]*domain.Task, error) {
	ctx, span := s.tracer.Start(ctx, "service.List")
	defer span.End()

	tasks, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list tasks from repository")
	}
	return tasks, err
}

// Run dispatches a stored task immediately and returns the execution ID.
func (s *TaskService) Run(ctx context.Context, name string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "service.Run")
	defer span.End()
	span.SetAttributes(attribute.String("task.name", name))

	task, err := s.repo.Get(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get task from repository")
		return "", err
	}

	executionID, err := s.dispatcher.Dispatch(ctx, task)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to dispatch task")
	}
	return executionID, err
}

// ListHistory lists the execution history for a specific task, newest first.
func (s *TaskService) ListHistory(ctx context.Context, taskName string, page, pageSize int) ([]*domain.ExecutionRecord, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListHistory")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.name", taskName),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	records, err := s.execRepo.ListByTaskName(ctx, taskName, page, pageSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list task history from repository")
	}
	return records, err
}

func (s *TaskService) GetExecution(ctx context.Context, taskName, executionID string) (*domain.ExecutionRecord, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetExecution")
	defer span.End()
	span.SetAttributes(attribute.String("task.name", taskName), attribute.String("execution.id", executionID))

	record, err := s.execRepo.Get(ctx, taskName, executionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get execution record")
	}
	return record, err
}
