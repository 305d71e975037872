package httpapi

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"watchtower.dev/internal/obs"
)

// GRPCHealth publishes readiness through the standard gRPC health service so
// orchestrators can probe the API without HTTP.
type GRPCHealth struct {
	server    *health.Server
	readiness readinessChecker
}

func NewGRPCHealth(r readinessChecker) *GRPCHealth {
	if r == nil {
		r = ReadyProbe{}
	}
	return &GRPCHealth{server: health.NewServer(), readiness: r}
}

// Register attaches the health service to srv.
func (h *GRPCHealth) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, h.server)
}

// Refresh evaluates readiness once and updates the serving status of both
// the overall server ("") and serviceName.
func (h *GRPCHealth) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.readiness.Check(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		obs.Logger().Warn("readiness check failed", zap.Error(err))
	}
	obs.SetReady(status == healthpb.HealthCheckResponse_SERVING)
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(serviceName, status)
	return status
}

// Watch refreshes the status every interval until ctx ends, then marks the
// service as shutting down.
func (h *GRPCHealth) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		h.Refresh(checkCtx)
		cancel()
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
		}
	}
}
