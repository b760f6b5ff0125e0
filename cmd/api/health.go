package main

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthProbeInterval = 15 * time.Second

// healthServer exposes the standard gRPC health protocol so orchestrators
// can probe the API without going through HTTP. The overall status follows
// the database ping.
type healthServer struct {
	grpc   *grpc.Server
	health *health.Server
	ping   func(ctx context.Context) error
	log    *zap.Logger
}

func newHealthServer(ping func(ctx context.Context) error, log *zap.Logger) *healthServer {
	h := &healthServer{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		ping:   ping,
		log:    log,
	}
	healthpb.RegisterHealthServer(h.grpc, h.health)
	return h
}

// probe pings the database once and records the result.
func (h *healthServer) probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.ping(ctx); err != nil {
		h.log.Warn("database ping failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", status)
	return status
}

// watch probes until ctx is done.
func (h *healthServer) watch(ctx context.Context) {
	h.probe(ctx)
	ticker := time.NewTicker(healthProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.probe(ctx)
		}
	}
}

// serve blocks serving health checks on lis.
func (h *healthServer) serve(lis net.Listener) error {
	return h.grpc.Serve(lis)
}

func (h *healthServer) stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
