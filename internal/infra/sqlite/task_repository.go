package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"jobpool/internal/domain"
)

type taskRepository struct {
	store *Store
}

// NewTaskRepository returns a task repository backed by s.
func NewTaskRepository(s *Store) domain.TaskRepository {
	return &taskRepository{store: s}
}

func (r *taskRepository) Save(ctx context.Context, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	_, err = r.store.db.ExecContext(ctx,
		"INSERT INTO tasks (name, data) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET data = excluded.data",
		task.Name, string(data))
	if err != nil {
		r.store.logger.Error("failed to save task", "task_name", task.Name, "error", err)
		return fmt.Errorf("failed to save task %s: %w", task.Name, err)
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, name string) error {
	result, err := r.store.db.ExecContext(ctx, "DELETE FROM tasks WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", name, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) Get(ctx context.Context, name string) (*domain.Task, error) {
	var data string
	err := r.store.db.QueryRowContext(ctx, "SELECT data FROM tasks WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", name, err)
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task %s: %w", name, err)
	}
	return &task, nil
}

// List returns every task ordered by name. Rows that fail to decode are
// logged and skipped.
func (r *taskRepository) List(ctx context.Context) ([]*domain.Task, error) {
	rows, err := r.store.db.QueryContext(ctx, "SELECT name, data FROM tasks ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, err
		}
		var task domain.Task
		if err := json.Unmarshal([]byte(data), &task); err != nil {
			r.store.logger.Warn("failed to unmarshal task, skipping", "task_name", name, "error", err)
			continue
		}
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}
