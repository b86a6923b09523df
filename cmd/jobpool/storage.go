package main

import (
	"fmt"
	"log/slog"

	"jobpool/internal/config"
	"jobpool/internal/domain"
	"jobpool/internal/infra/etcd"
	"jobpool/internal/infra/memory"
	"jobpool/internal/infra/sqlite"
)

// newRepositories builds the task and history repositories for the configured
// backend. The returned func releases the backend's resources.
func newRepositories(cfg *config.Config, logger *slog.Logger) (domain.TaskRepository, domain.ExecutionRepository, func(), error) {
	switch cfg.Storage {
	case config.StorageEtcd:
		client, err := etcd.NewClient(cfg.EtcdEndpoints, cfg.EtcdTimeout)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create etcd client: %w", err)
		}
		logger.Info("using etcd storage", "endpoints", cfg.EtcdEndpoints)
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Error("failed to close etcd client", "error", err)
			}
		}
		return etcd.NewEtcdTaskRepository(client, logger), etcd.NewEtcdExecutionRepository(client, logger), closeFn, nil
	case config.StorageSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using sqlite storage", "path", cfg.SQLitePath)
		closeFn := func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close sqlite store", "error", err)
			}
		}
		return sqlite.NewTaskRepository(store), sqlite.NewExecutionRepository(store, cfg.HistoryLimit), closeFn, nil
	default:
		logger.Info("using in-memory storage", "history_limit", cfg.HistoryLimit)
		return memory.NewTaskRepository(), memory.NewExecutionRepository(cfg.HistoryLimit), func() {}, nil
	}
}
