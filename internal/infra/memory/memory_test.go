package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"jobpool/internal/domain"
)

func TestTaskRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository()

	for _, name := range []string{"zeta", "alpha"} {
		if err := repo.Save(ctx, &domain.Task{Name: name}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	tasks, _ := repo.List(ctx)
	if len(tasks) != 2 || tasks[0].Name != "alpha" || tasks[1].Name != "zeta" {
		t.Errorf("expected tasks sorted by name, got %v", tasks)
	}

	got, err := repo.Get(ctx, "alpha")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got.CronExpr = "mutated"
	again, _ := repo.Get(ctx, "alpha")
	if again.CronExpr != "" {
		t.Error("expected stored task to be isolated from callers")
	}

	if err := repo.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, "alpha"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Get() error = %v, want ErrTaskNotFound", err)
	}
	if err := repo.Delete(ctx, "alpha"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Delete() error = %v, want ErrTaskNotFound", err)
	}
}

func newRecord(id string) *domain.ExecutionRecord {
	return &domain.ExecutionRecord{ID: id, TaskName: "t", SubmittedAt: time.Now(), Status: domain.ExecutionStatusQueued}
}

func TestExecutionRepositoryHistory(t *testing.T) {
	ctx := context.Background()
	repo := NewExecutionRepository(0)

	for i := range 5 {
		_ = repo.Save(ctx, newRecord(fmt.Sprintf("e%d", i)))
	}

	page, err := repo.ListByTaskName(ctx, "t", 1, 3)
	if err != nil {
		t.Fatalf("ListByTaskName() error = %v", err)
	}
	if len(page) != 3 || page[0].ID != "e4" || page[2].ID != "e2" {
		t.Errorf("unexpected first page: %v", page)
	}
	page, _ = repo.ListByTaskName(ctx, "t", 2, 3)
	if len(page) != 2 || page[1].ID != "e0" {
		t.Errorf("unexpected second page: %v", page)
	}
	page, err = repo.ListByTaskName(ctx, "t", 1<<62, 20)
	if err != nil || len(page) != 0 {
		t.Errorf("expected an empty page far past the end, got %v, %v", page, err)
	}
	page, _ = repo.ListByTaskName(ctx, "unknown", 1, 3)
	if len(page) != 0 {
		t.Errorf("expected no history for unknown task, got %v", page)
	}
}

func TestExecutionRepositoryUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	repo := NewExecutionRepository(10)

	record := newRecord("e1")
	_ = repo.Save(ctx, record)
	record.Status = domain.ExecutionStatusFailed
	record.Error = "exit status 1"
	_ = repo.Save(ctx, record)

	got, err := repo.Get(ctx, "t", "e1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != domain.ExecutionStatusFailed || got.Error != "exit status 1" {
		t.Errorf("unexpected record %+v", got)
	}
	page, _ := repo.ListByTaskName(ctx, "t", 1, 10)
	if len(page) != 1 {
		t.Errorf("expected update to replace the record, got %d records", len(page))
	}
	if _, err := repo.Get(ctx, "t", "missing"); !errors.Is(err, domain.ErrExecutionNotFound) {
		t.Errorf("Get() error = %v, want ErrExecutionNotFound", err)
	}
}

func TestExecutionRepositoryLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewExecutionRepository(2)

	for i := range 4 {
		_ = repo.Save(ctx, newRecord(fmt.Sprintf("e%d", i)))
	}
	page, _ := repo.ListByTaskName(ctx, "t", 1, 10)
	if len(page) != 2 || page[0].ID != "e3" || page[1].ID != "e2" {
		t.Errorf("expected only the newest 2 records, got %v", page)
	}
}
