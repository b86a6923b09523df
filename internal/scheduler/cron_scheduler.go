// internal/scheduler/cron_scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"jobpool/internal/domain"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Parser accepts the six-field (with seconds) cron expressions used by tasks.
var Parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// cronScheduler triggers task runs at the right time. It never executes a
// task itself: every tick goes through the dispatcher into the pool.
type cronScheduler struct {
	cron       *cron.Cron
	dispatcher domain.Dispatcher
	logger     *slog.Logger
	tracer     trace.Tracer

	mu    sync.Mutex
	tasks map[string]cron.EntryID
}

// NewCronScheduler creates a scheduler that dispatches through dispatcher.
func NewCronScheduler(dispatcher domain.Dispatcher, logger *slog.Logger) domain.Schedular {
	return &cronScheduler{
		cron:       cron.New(cron.WithParser(Parser)),
		dispatcher: dispatcher,
		tasks:      make(map[string]cron.EntryID),
		logger:     logger.With("component", "cron-scheduler"),
		tracer:     otel.Tracer("jobpool-scheduler"),
	}
}

// Start runs the cron loop until ctx is done, then waits for running
// triggers to return.
func (s *cronScheduler) Start(ctx context.Context) error {
	s.logger.Info("cron scheduler started")
	s.cron.Start()
	<-ctx.Done()
	s.logger.Info("cron scheduler stopping...")
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("cron scheduler stopped")
	return ctx.Err()
}

// AddTask schedules task, replacing any previous schedule under the same
// name. A task without a cron expression is only unscheduled.
func (s *cronScheduler) AddTask(task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.tasks[task.Name]; ok {
		s.cron.Remove(entryID)
		delete(s.tasks, task.Name)
	}
	if !task.Scheduled() {
		return nil
	}

	snapshot := *task
	wrapper := &cronTaskWrapper{
		task:       &snapshot,
		dispatcher: s.dispatcher,
		logger:     s.logger.With("task_name", task.Name),
		tracer:     s.tracer,
	}

	entryID, err := s.cron.AddJob(task.CronExpr, wrapper)
	if err != nil {
		s.logger.Error("failed to add task to cron", "task_name", task.Name, "error", err)
		return fmt.Errorf("schedule task %s: %w", task.Name, err)
	}

	s.tasks[task.Name] = entryID
	s.logger.Info("added task to scheduler", "task_name", task.Name, "schedule", task.CronExpr)
	return nil
}

// RemoveTask unschedules a task. Unknown names are ignored.
func (s *cronScheduler) RemoveTask(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.tasks[name]; ok {
		s.cron.Remove(entryID)
		delete(s.tasks, name)
		s.logger.Info("removed task from scheduler", "task_name", name)
	}
	return nil
}

type cronTaskWrapper struct {
	task       *domain.Task
	dispatcher domain.Dispatcher
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Run is called by the cron library on every tick.
func (w *cronTaskWrapper) Run() {
	ctx, span := w.tracer.Start(context.Background(), "scheduler.Dispatch",
		trace.WithAttributes(
			attribute.String("task.name", w.task.Name),
			attribute.String("task.id", w.task.ID),
		))
	defer span.End()

	executionID, err := w.dispatcher.Dispatch(ctx, w.task)
	if err != nil {
		w.logger.Error("failed to dispatch task", "error", err)
		span.RecordError(err)
		return
	}
	w.logger.Info("dispatched task", "execution_id", executionID)
}
