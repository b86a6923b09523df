package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"jobpool/internal/domain"
)

type executionRepository struct {
	store *Store
	limit int
}

// NewExecutionRepository returns a history repository backed by s that keeps
// at most limit records per task. A non-positive limit keeps everything.
func NewExecutionRepository(s *Store, limit int) domain.ExecutionRepository {
	return &executionRepository{store: s, limit: limit}
}

func (r *executionRepository) Save(ctx context.Context, record *domain.ExecutionRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal execution record: %w", err)
	}

	_, err = r.store.db.ExecContext(ctx,
		`INSERT INTO executions (id, task_name, submitted_at, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		record.ID, record.TaskName, record.SubmittedAt.UnixNano(), string(data))
	if err != nil {
		r.store.logger.Error("failed to save execution record", "execution_id", record.ID, "error", err)
		return fmt.Errorf("failed to save execution record %s: %w", record.ID, err)
	}

	if r.limit > 0 {
		_, err = r.store.db.ExecContext(ctx,
			`DELETE FROM executions WHERE task_name = ? AND id NOT IN (
			   SELECT id FROM executions WHERE task_name = ? ORDER BY submitted_at DESC, rowid DESC LIMIT ?)`,
			record.TaskName, record.TaskName, r.limit)
		if err != nil {
			r.store.logger.Warn("failed to trim execution history", "task_name", record.TaskName, "error", err)
		}
	}
	return nil
}

func (r *executionRepository) Get(ctx context.Context, taskName, executionID string) (*domain.ExecutionRecord, error) {
	var data string
	err := r.store.db.QueryRowContext(ctx,
		"SELECT data FROM executions WHERE task_name = ? AND id = ?", taskName, executionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrExecutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get execution record %s: %w", executionID, err)
	}

	var record domain.ExecutionRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution record %s: %w", executionID, err)
	}
	return &record, nil
}

// ListByTaskName returns one page of a task's history, newest first.
func (r *executionRepository) ListByTaskName(ctx context.Context, taskName string, page, pageSize int) ([]*domain.ExecutionRecord, error) {
	records := make([]*domain.ExecutionRecord, 0)
	if pageSize < 1 {
		return records, nil
	}
	if page < 1 {
		page = 1
	}
	if page-1 > math.MaxInt64/pageSize {
		return records, nil
	}

	rows, err := r.store.db.QueryContext(ctx,
		`SELECT id, data FROM executions WHERE task_name = ?
		 ORDER BY submitted_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		taskName, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		var record domain.ExecutionRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			r.store.logger.Warn("failed to unmarshal execution record, skipping", "execution_id", id, "error", err)
			continue
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}
