// internal/infra/etcd/etcd_task_repository.go
package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"jobpool/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type etcdTaskRepository struct {
	kv     clientv3.KV
	logger *slog.Logger
	tracer trace.Tracer
}

// NewEtcdTaskRepository creates a repository for task definitions backed by etcd.
func NewEtcdTaskRepository(kv clientv3.KV, logger *slog.Logger) domain.TaskRepository {
	return &etcdTaskRepository{
		kv:     kv,
		logger: logger.With("component", "etcd-task-repo"),
		tracer: otel.Tracer("jobpool-etcd-task-repo"),
	}
}

func taskKey(name string) string {
	return path.Join(TaskSaveDir, name)
}

// Save stores the task definition as JSON under its name.
func (r *etcdTaskRepository) Save(ctx context.Context, task *domain.Task) error {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.SaveTask")
	defer span.End()

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task to JSON: %w", err)
	}

	key := taskKey(task.Name)
	span.SetAttributes(
		attribute.String("task.name", task.Name),
		attribute.String("etcd.key", key),
	)

	if _, err := r.kv.Put(ctx, key, string(data)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put task to etcd")
		return fmt.Errorf("failed to save task %s to etcd: %w", task.Name, err)
	}
	return nil
}

// Delete removes a task definition. Deleting a missing task reports ErrTaskNotFound.
func (r *etcdTaskRepository) Delete(ctx context.Context, name string) error {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.DeleteTask")
	defer span.End()
	span.SetAttributes(attribute.String("task.name", name))

	resp, err := r.kv.Delete(ctx, taskKey(name))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete task from etcd")
		return fmt.Errorf("failed to delete task %s from etcd: %w", name, err)
	}
	if resp.Deleted == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *etcdTaskRepository) Get(ctx context.Context, name string) (*domain.Task, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.GetTask")
	defer span.End()
	span.SetAttributes(attribute.String("task.name", name))

	resp, err := r.kv.Get(ctx, taskKey(name))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get task from etcd")
		return nil, fmt.Errorf("failed to get task %s from etcd: %w", name, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, domain.ErrTaskNotFound
	}

	var task domain.Task
	if err := json.Unmarshal(resp.Kvs[0].Value, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task %s from JSON: %w", name, err)
	}
	return &task, nil
}

// List returns every stored task, skipping entries that fail to decode.
func (r *etcdTaskRepository) List(ctx context.Context) ([]*domain.Task, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.ListTasks")
	defer span.End()

	resp, err := r.kv.Get(ctx, TaskSaveDir, clientv3.WithPrefix())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list tasks from etcd")
		return nil, fmt.Errorf("failed to list tasks from etcd: %w", err)
	}
	span.SetAttributes(attribute.Int("etcd.kv_count", len(resp.Kvs)))

	tasks := make([]*domain.Task, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var task domain.Task
		if err := json.Unmarshal(kv.Value, &task); err != nil {
			r.logger.Warn("failed to unmarshal task from etcd", "key", string(kv.Key), "error", err)
			continue
		}
		tasks = append(tasks, &task)
	}
	return tasks, nil
}
