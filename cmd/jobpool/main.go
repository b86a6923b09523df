// cmd/jobpool/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpc_api "jobpool/internal/api/grpc"
	http_api "jobpool/internal/api/http"
	"jobpool/internal/config"
	"jobpool/internal/domain"
	http_infra "jobpool/internal/infra/http"
	shell_infra "jobpool/internal/infra/shell"
	"jobpool/internal/metrics"
	"jobpool/internal/pool"
	"jobpool/internal/scheduler"
	"jobpool/internal/tracing"
	"jobpool/internal/usecase"
	"jobpool/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default: ./configs/config.yaml or ./config.yaml)")
	healthcheck := flag.Bool("healthcheck", false, "query the gRPC health endpoint and exit")
	flag.Parse()

	// 1. Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if *healthcheck {
		os.Exit(runHealthcheck(cfg))
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("jobpool exited with error", "error", err)
		os.Exit(1)
	}
}

func runHealthcheck(cfg *config.Config) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	status, err := grpc_api.Check(ctx, dialAddr(cfg.GrpcListenAddr))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(status.String())
	if status != grpc_health_v1.HealthCheckResponse_SERVING {
		return 1
	}
	return 0
}

// dialAddr turns a listen address such as ":9090" into a dialable one.
func dialAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil || host != "" {
		return listen
	}
	return net.JoinHostPort("localhost", port)
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// 3. Tracing
	if cfg.TracingEnabled {
		tracerShutdown, err := tracing.InitTracer(cfg.ServiceName, os.Stderr)
		if err != nil {
			return fmt.Errorf("initialize tracer: %w", err)
		}
		defer func() {
			if err := tracerShutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", "error", err)
			}
		}()
	}

	// 4. Root context for lifecycle management
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 5. Storage
	taskRepo, execRepo, closeStorage, err := newRepositories(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	// 6. Worker pool
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	p, err := pool.New(cfg.WorkerCount,
		pool.WithInboxSize(cfg.InboxSize),
		pool.WithLogger(logger),
		pool.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	executors := map[domain.ExecutorType]domain.TaskExecutor{
		domain.ExecutorTypeHTTP:  http_infra.NewHttpTaskExecutor(cfg.HttpTimeout),
		domain.ExecutorTypeShell: shell_infra.NewShellTaskExecutor(cfg.ShellTimeout, logger),
	}
	runner := worker.NewRunner(p, executors, execRepo, hostname, m, logger)

	// 7. Scheduling and use cases
	cronScheduler := scheduler.NewCronScheduler(runner, logger)
	taskService := usecase.NewTaskService(taskRepo, execRepo, cronScheduler, runner, logger)
	if err := taskService.LoadSchedules(rootCtx); err != nil {
		logger.Error("failed to load stored schedules", "error", err)
	}

	schedCtx, cancelSched := context.WithCancel(context.Background())
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		_ = cronScheduler.Start(schedCtx)
	}()

	// 8. gRPC health
	grpcLis, err := net.Listen("tcp", cfg.GrpcListenAddr)
	if err != nil {
		cancelSched()
		return fmt.Errorf("listen on %s: %w", cfg.GrpcListenAddr, err)
	}
	healthServer := grpc_api.NewHealthServer(logger)
	go func() {
		if err := healthServer.Serve(grpcLis); err != nil {
			logger.Error("grpc health server failed", "error", err)
		}
	}()
	go healthServer.Watch(rootCtx, p, grpc_api.DefaultPollInterval)

	// 9. HTTP API
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	http_api.NewTaskHandler(taskService, m, logger).RegisterRoutes(mux)
	http_api.NewPoolHandler(p, m).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.HttpListenAddr,
		Handler:           http_api.CORS(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP API server", "addr", cfg.HttpListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 10. Block until shutdown
	select {
	case <-rootCtx.Done():
	case err := <-serverErr:
		logger.Error("HTTP server failed", "error", err)
	case <-p.Done():
		logger.Error("pool terminated unexpectedly")
	}
	logger.Info("shutting down application gracefully...")

	// Stop producing work, then let the pool drain what it already accepted.
	cancelSched()
	<-schedDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	p.Shutdown()
	poolErr := p.Wait(shutdownCtx)
	healthServer.Stop()

	stats := p.Stats()
	logger.Info("application shut down",
		"state", stats.State.String(), "completed", stats.Completed, "failed", stats.Failed, "rejected", stats.Rejected)
	if poolErr != nil {
		return fmt.Errorf("pool shutdown: %w", poolErr)
	}
	return nil
}
