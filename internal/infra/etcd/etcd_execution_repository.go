// internal/infra/etcd/etcd_execution_repository.go
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

type etcdExecutionRepository struct {
	kv     clientv3.KV
	logger *slog.Logger
	tracer trace.Tracer
}

// NewEtcdExecutionRepository creates a repository for execution records backed by etcd.
func NewEtcdExecutionRepository(kv clientv3.KV, logger *slog.Logger) domain.ExecutionRepository {
	return &etcdExecutionRepository{
		kv:     kv,
		logger: logger.With("component", "etcd-execution-repo"),
		tracer: otel.Tracer("jobpool-etcd-execution-repo"),
	}
}

func executionKey(taskName, executionID string) string {
	return path.Join(ExecutionHistoryDir, taskName, executionID)
}

// Save persists a single execution record.
// The key is structured as /jobpool/history/{taskName}/{executionID}, so each
// status update of a run overwrites the same key.
func (r *etcdExecutionRepository) Save(ctx context.Context, record *domain.ExecutionRecord) error {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.SaveExecution")
	defer span.End()

	if err := record.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal execution record")
		return fmt.Errorf("failed to marshal execution record %s to JSON: %w", record.ID, err)
	}

	key := executionKey(record.TaskName, record.ID)
	span.SetAttributes(
		attribute.String("execution.id", record.ID),
		attribute.String("execution.status", string(record.Status)),
		attribute.String("etcd.key", key),
	)

	if _, err := r.kv.Put(ctx, key, string(data)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put execution record to etcd")
		return fmt.Errorf("failed to save execution record %s to etcd: %w", record.ID, err)
	}
	return nil
}

func (r *etcdExecutionRepository) Get(ctx context.Context, taskName, executionID string) (*domain.ExecutionRecord, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.GetExecution")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.name", taskName),
		attribute.String("execution.id", executionID),
	)

	resp, err := r.kv.Get(ctx, executionKey(taskName, executionID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get execution record from etcd")
		return nil, fmt.Errorf("failed to get execution record %s/%s from etcd: %w", taskName, executionID, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, domain.ErrExecutionNotFound
	}

	var record domain.ExecutionRecord
	if err := json.Unmarshal(resp.Kvs[0].Value, &record); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal execution record %s/%s from JSON: %w", taskName, executionID, err)
	}
	return &record, nil
}

// ListByTaskName returns one page of a task's history, newest first.
func (r *etcdExecutionRepository) ListByTaskName(ctx context.Context, taskName string, page, pageSize int) ([]*domain.ExecutionRecord, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.ListExecutions")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.name", taskName),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	prefix := path.Join(ExecutionHistoryDir, taskName) + "/"
	resp, err := r.kv.Get(ctx, prefix,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByCreateRevision, clientv3.SortDescend),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list execution records from etcd")
		return nil, fmt.Errorf("failed to list execution records for task %s from etcd: %w", taskName, err)
	}

	// etcd limits count keys, not offsets, so the page is cut client side.
	start, end := domain.PageBounds(page, pageSize, len(resp.Kvs))
	records := make([]*domain.ExecutionRecord, 0, end-start)
	for _, kv := range resp.Kvs[start:end] {
		var record domain.ExecutionRecord
		if err := json.Unmarshal(kv.Value, &record); err != nil {
			r.logger.Warn("failed to unmarshal execution record from etcd", "key", string(kv.Key), "error", err)
			continue
		}
		records = append(records, &record)
	}
	span.SetAttributes(attribute.Int("records_returned", len(records)))
	return records, nil
}
