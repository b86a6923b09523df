package sqlite

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"jobpool/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobpool.db"), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTaskRepository(t *testing.T) {
	repo := NewTaskRepository(openTestStore(t))
	ctx := context.Background()

	for _, name := range []string{"b", "a"} {
		task := &domain.Task{ID: "id-" + name, Name: name, ExecutorType: domain.ExecutorTypeShell, Executor: domain.TaskExecutorSpec{Command: "ls"}}
		if err := repo.Save(ctx, task); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	updated := &domain.Task{ID: "id-a", Name: "a", CronExpr: "* * * * * *", ExecutorType: domain.ExecutorTypeShell, Executor: domain.TaskExecutorSpec{Command: "pwd"}}
	if err := repo.Save(ctx, updated); err != nil {
		t.Fatalf("Save() update error = %v", err)
	}

	got, err := repo.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Executor.Command != "pwd" || got.CronExpr != "* * * * * *" {
		t.Errorf("expected updated task, got %+v", got)
	}

	tasks, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tasks) != 2 || tasks[0].Name != "a" || tasks[1].Name != "b" {
		t.Errorf("expected tasks a and b in order, got %v", tasks)
	}

	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, "a"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "a"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound on second delete, got %v", err)
	}
}

func TestExecutionRepository(t *testing.T) {
	repo := NewExecutionRepository(openTestStore(t), 3)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"e1", "e2", "e3", "e4"} {
		record := &domain.ExecutionRecord{
			ID:          id,
			TaskName:    "job",
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
			Status:      domain.ExecutionStatusQueued,
		}
		if err := repo.Save(ctx, record); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	// Updating keeps the record in place.
	done := &domain.ExecutionRecord{ID: "e3", TaskName: "job", SubmittedAt: base.Add(2 * time.Minute), Status: domain.ExecutionStatusSuccess, Output: "ok"}
	if err := repo.Save(ctx, done); err != nil {
		t.Fatalf("Save() update error = %v", err)
	}

	records, err := repo.ListByTaskName(ctx, "job", 1, 10)
	if err != nil {
		t.Fatalf("ListByTaskName() error = %v", err)
	}
	var ids []string
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	if len(ids) != 3 || ids[0] != "e4" || ids[1] != "e3" || ids[2] != "e2" {
		t.Errorf("expected [e4 e3 e2] after trimming, got %v", ids)
	}

	page2, _ := repo.ListByTaskName(ctx, "job", 2, 2)
	if len(page2) != 1 || page2[0].ID != "e2" {
		t.Errorf("unexpected second page %v", page2)
	}
	if far, err := repo.ListByTaskName(ctx, "job", 1<<62, 20); err != nil || len(far) != 0 {
		t.Errorf("expected an empty page far past the end, got %v, %v", far, err)
	}

	got, err := repo.Get(ctx, "job", "e3")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != domain.ExecutionStatusSuccess || got.Output != "ok" {
		t.Errorf("expected updated record, got %+v", got)
	}
	if _, err := repo.Get(ctx, "job", "e1"); !errors.Is(err, domain.ErrExecutionNotFound) {
		t.Errorf("expected trimmed record to be gone, got %v", err)
	}
	if err := repo.Save(ctx, &domain.ExecutionRecord{TaskName: "job"}); err == nil {
		t.Error("expected invalid record to be rejected")
	}
}
