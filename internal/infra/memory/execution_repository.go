package memory

import (
	"context"
	"sync"

	"jobpool/internal/domain"
)

// DefaultHistoryLimit bounds the records kept per task.
const DefaultHistoryLimit = 1000

type executionRepository struct {
	mu    sync.RWMutex
	limit int
	// Per task, oldest first. Records are stored by value so callers cannot
	// mutate history behind the repository's back.
	history map[string][]domain.ExecutionRecord
}

// NewExecutionRepository returns an in-memory history keeping at most limit
// records per task. A non-positive limit selects DefaultHistoryLimit.
func NewExecutionRepository(limit int) domain.ExecutionRepository {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &executionRepository{
		limit:   limit,
		history: make(map[string][]domain.ExecutionRecord),
	}
}

// Save inserts a record or replaces the one with the same ID.
func (r *executionRepository) Save(_ context.Context, record *domain.ExecutionRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records := r.history[record.TaskName]
	for i := range records {
		if records[i].ID == record.ID {
			records[i] = *record
			return nil
		}
	}
	records = append(records, *record)
	if len(records) > r.limit {
		records = records[len(records)-r.limit:]
	}
	r.history[record.TaskName] = records
	return nil
}

func (r *executionRepository) Get(_ context.Context, taskName, executionID string) (*domain.ExecutionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, record := range r.history[taskName] {
		if record.ID == executionID {
			return &record, nil
		}
	}
	return nil, domain.ErrExecutionNotFound
}

// ListByTaskName returns one page of a task's history, newest first.
func (r *executionRepository) ListByTaskName(_ context.Context, taskName string, page, pageSize int) ([]*domain.ExecutionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := r.history[taskName]
	start, end := domain.PageBounds(page, pageSize, len(records))
	out := make([]*domain.ExecutionRecord, 0, end-start)
	for i := start; i < end; i++ {
		record := records[len(records)-1-i]
		out = append(out, &record)
	}
	return out, nil
}
