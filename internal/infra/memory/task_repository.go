// Package memory provides process-local repositories, used when no etcd
// cluster is configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"jobpool/internal/domain"
)

type taskRepository struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
}

// NewTaskRepository returns an empty in-memory task repository.
func NewTaskRepository() domain.TaskRepository {
	return &taskRepository{tasks: make(map[string]domain.Task)}
}

func (r *taskRepository) Save(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.Name] = *task
	return nil
}

func (r *taskRepository) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[name]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, name)
	return nil
}

func (r *taskRepository) Get(_ context.Context, name string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[name]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &task, nil
}

// List returns the tasks sorted by name.
func (r *taskRepository) List(_ context.Context) ([]*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tasks := make([]*domain.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, &task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
	return tasks, nil
}
