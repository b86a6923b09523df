// Package grpc exposes the standard gRPC health service for the pool.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"jobpool/internal/pool"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the pool. The empty
// name reports overall server health and follows the same status.
const ServiceName = "jobpool.Pool"

// DefaultPollInterval is how often Watch samples the pool state.
const DefaultPollInterval = 500 * time.Millisecond

// PoolState is the part of *pool.Pool the health server observes.
type PoolState interface {
	State() pool.State
	Done() <-chan struct{}
}

// HealthServer serves grpc.health.v1.Health.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// NewHealthServer creates the gRPC server. Every service starts NOT_SERVING
// until Watch observes a running pool.
func NewHealthServer(logger *slog.Logger) *HealthServer {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)

	hs := &HealthServer{server: s, health: h, logger: logger.With("component", "grpc-health")}
	hs.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return hs
}

// Serve accepts connections on lis until Stop is called.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Info("grpc health server listening", "addr", lis.Addr().String())
	return s.server.Serve(lis)
}

// Stop marks every service NOT_SERVING and stops the server gracefully.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

// Watch keeps the health status in line with the pool state until ctx is done
// or the pool terminates: SERVING while running, NOT_SERVING otherwise.
func (s *HealthServer) Watch(ctx context.Context, p PoolState, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_UNKNOWN
	update := func(status healthpb.HealthCheckResponse_ServingStatus) {
		if status != last {
			s.setStatus(status)
			s.logger.Info("health status changed", "status", status.String())
			last = status
		}
	}

	for {
		if p.State() == pool.StateRunning {
			update(healthpb.HealthCheckResponse_SERVING)
		} else {
			update(healthpb.HealthCheckResponse_NOT_SERVING)
		}
		select {
		case <-ctx.Done():
			return
		case <-p.Done():
			update(healthpb.HealthCheckResponse_NOT_SERVING)
			return
		case <-ticker.C:
		}
	}
}

func (s *HealthServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Check dials addr and queries the pool health service once.
func Check(ctx context.Context, addr string, opts ...grpc.DialOption) (healthpb.HealthCheckResponse_ServingStatus, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("failed to create grpc client for %s: %w", addr, err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check %s: %w", addr, err)
	}
	return resp.GetStatus(), nil
}
