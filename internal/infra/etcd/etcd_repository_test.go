package etcd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"jobpool/internal/domain"
)

var discard = slog.New(slog.DiscardHandler)

func TestTaskRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	repo := NewEtcdTaskRepository(kv, discard)

	task := &domain.Task{Name: "backup", ExecutorType: domain.ExecutorTypeShell,
		Executor: domain.TaskExecutorSpec{Command: "tar czf /tmp/b.tgz /data"}}
	if err := repo.Save(ctx, task); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, ok := kv.data["/jobpool/tasks/backup"]; !ok {
		t.Errorf("expected task stored under its name, keys: %v", kv.data)
	}

	got, err := repo.Get(ctx, "backup")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Executor.Command != task.Executor.Command {
		t.Errorf("expected command %q, got %q", task.Executor.Command, got.Executor.Command)
	}

	if err := repo.Save(ctx, &domain.Task{Name: "ping", ExecutorType: domain.ExecutorTypeHTTP}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	tasks, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(tasks))
	}

	if err := repo.Delete(ctx, "backup"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, "backup"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrTaskNotFound", err)
	}
	if err := repo.Delete(ctx, "backup"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("second Delete() error = %v, want ErrTaskNotFound", err)
	}
}

func TestTaskRepositorySkipsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	repo := NewEtcdTaskRepository(kv, discard)

	_, _ = kv.Put(ctx, TaskSaveDir+"broken", "{not json")
	_ = repo.Save(ctx, &domain.Task{Name: "ok", ExecutorType: domain.ExecutorTypeShell})

	tasks, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].Name != "ok" {
		t.Errorf("expected only the valid task, got %v", tasks)
	}
}

func TestExecutionRepositoryHistory(t *testing.T) {
	ctx := context.Background()
	repo := NewEtcdExecutionRepository(newFakeKV(), discard)

	for i := range 5 {
		record := &domain.ExecutionRecord{
			ID:          fmt.Sprintf("exec-%d", i),
			TaskName:    "backup",
			SubmittedAt: time.Now(),
			Status:      domain.ExecutionStatusQueued,
		}
		if err := repo.Save(ctx, record); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	_ = repo.Save(ctx, &domain.ExecutionRecord{ID: "other", TaskName: "backup-2", SubmittedAt: time.Now(), Status: domain.ExecutionStatusQueued})

	page1, err := repo.ListByTaskName(ctx, "backup", 1, 2)
	if err != nil {
		t.Fatalf("ListByTaskName() error = %v", err)
	}
	if len(page1) != 2 || page1[0].ID != "exec-4" || page1[1].ID != "exec-3" {
		t.Errorf("unexpected first page %v", ids(page1))
	}

	page3, _ := repo.ListByTaskName(ctx, "backup", 3, 2)
	if len(page3) != 1 || page3[0].ID != "exec-0" {
		t.Errorf("unexpected last page %v", ids(page3))
	}

	page4, _ := repo.ListByTaskName(ctx, "backup", 4, 2)
	if len(page4) != 0 {
		t.Errorf("expected empty page, got %v", ids(page4))
	}
}

func TestExecutionRepositoryUpdateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewEtcdExecutionRepository(newFakeKV(), discard)

	record := &domain.ExecutionRecord{ID: "e1", TaskName: "t", SubmittedAt: time.Now(), Status: domain.ExecutionStatusQueued}
	_ = repo.Save(ctx, record)
	record.Status = domain.ExecutionStatusSuccess
	_ = repo.Save(ctx, record)

	got, err := repo.Get(ctx, "t", "e1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != domain.ExecutionStatusSuccess {
		t.Errorf("expected success, got %s", got.Status)
	}

	if _, err := repo.Get(ctx, "t", "missing"); !errors.Is(err, domain.ErrExecutionNotFound) {
		t.Errorf("Get() error = %v, want ErrExecutionNotFound", err)
	}
	if err := repo.Save(ctx, &domain.ExecutionRecord{TaskName: "t"}); err == nil {
		t.Error("expected invalid record to be refused")
	}
}

func ids(records []*domain.ExecutionRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
