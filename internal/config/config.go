// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageEtcd   = "etcd"
	StorageSQLite = "sqlite"
)

// Config holds all configuration for our application.
// The mapstructure tags are used by Viper to unmarshal the data.
type Config struct {
	ServiceName    string        `mapstructure:"service_name" validate:"required"`
	WorkerCount    int           `mapstructure:"worker_count" validate:"gte=1"`
	InboxSize      int           `mapstructure:"inbox_size" validate:"gte=1"`
	HttpListenAddr string        `mapstructure:"http_listen_addr" validate:"required"`
	GrpcListenAddr string        `mapstructure:"grpc_listen_addr" validate:"required"`
	Storage        string        `mapstructure:"storage" validate:"oneof=memory etcd sqlite"`
	EtcdEndpoints  []string      `mapstructure:"etcd_endpoints" validate:"required_if=Storage etcd,dive,hostname_port"`
	SQLitePath     string        `mapstructure:"sqlite_path" validate:"required_if=Storage sqlite"`
	EtcdTimeout    time.Duration `mapstructure:"etcd_timeout" validate:"gt=0"`
	ShellTimeout   time.Duration `mapstructure:"shell_timeout" validate:"gt=0"`
	HttpTimeout    time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
	HistoryLimit   int           `mapstructure:"history_limit" validate:"gte=1"`
	TracingEnabled bool          `mapstructure:"tracing_enabled"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace" validate:"gt=0"`
}

// EnvPrefix prefixes every environment override, e.g. JOBPOOL_WORKER_COUNT.
const EnvPrefix = "JOBPOOL"

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "jobpool")
	v.SetDefault("worker_count", 10)
	v.SetDefault("inbox_size", 1024)
	v.SetDefault("http_listen_addr", ":8080")
	v.SetDefault("grpc_listen_addr", ":9090")
	v.SetDefault("storage", StorageMemory)
	v.SetDefault("etcd_endpoints", []string{"localhost:2379"})
	v.SetDefault("sqlite_path", "jobpool.db")
	v.SetDefault("etcd_timeout", "5s")
	v.SetDefault("shell_timeout", "30s")
	v.SetDefault("http_timeout", "15s")
	v.SetDefault("history_limit", 1000)
	v.SetDefault("tracing_enabled", true)
	v.SetDefault("shutdown_grace", "30s")
}

// Load loads configuration from file and environment variables. An empty path
// searches ./configs and the working directory for config.yaml; a missing
// file there is not an error. A .env file in the working directory, if any,
// is loaded first without overriding variables already set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
