package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WorkerCount != 10 || cfg.InboxSize != 1024 {
		t.Errorf("unexpected pool defaults: %+v", cfg)
	}
	if cfg.Storage != StorageMemory || cfg.EtcdTimeout != 5*time.Second {
		t.Errorf("unexpected storage defaults: %+v", cfg)
	}
	if cfg.HttpListenAddr != ":8080" || cfg.GrpcListenAddr != ":9090" {
		t.Errorf("unexpected listen defaults: %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
worker_count: 4
storage: etcd
etcd_endpoints:
  - etcd-0:2379
  - etcd-1:2379
shell_timeout: 2m
`)
	t.Setenv("JOBPOOL_INBOX_SIZE", "64")
	t.Setenv("JOBPOOL_HTTP_LISTEN_ADDR", ":18080")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WorkerCount != 4 || cfg.InboxSize != 64 || cfg.HttpListenAddr != ":18080" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Storage != StorageEtcd || len(cfg.EtcdEndpoints) != 2 {
		t.Errorf("unexpected etcd config: %+v", cfg)
	}
	if cfg.ShellTimeout != 2*time.Minute {
		t.Errorf("expected shell timeout 2m, got %s", cfg.ShellTimeout)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "zero workers", content: "worker_count: 0\n"},
		{name: "unknown storage", content: "storage: redis\n"},
		{name: "bad endpoint", content: "storage: etcd\netcd_endpoints: [\"not an endpoint\"]\n"},
		{name: "negative timeout", content: "http_timeout: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("JOBPOOL_WORKER_COUNT=3\nJOBPOOL_STORAGE=sqlite\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("JOBPOOL_WORKER_COUNT")
		os.Unsetenv("JOBPOOL_STORAGE")
	})

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WorkerCount != 3 || cfg.Storage != StorageSQLite || cfg.SQLitePath != "jobpool.db" {
		t.Errorf("expected .env overrides, got %+v", cfg)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}
