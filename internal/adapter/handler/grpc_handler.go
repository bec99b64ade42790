package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/medstock/internal/logging"
	"github.com/rl1809/medstock/internal/port"
)

// InventoryServiceName is the service name reported over grpc.health.v1.
const InventoryServiceName = "medstock.Inventory"

// HealthReporter publishes record-store reachability through the standard
// gRPC health service.
type HealthReporter struct {
	server *health.Server
	store  port.RecordStore
	logger logging.Logger
}

func NewHealthReporter(store port.RecordStore, logger logging.Logger) *HealthReporter {
	return &HealthReporter{
		server: health.NewServer(),
		store:  store,
		logger: logger,
	}
}

func (h *HealthReporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Probe pings the store once and updates both the overall and the inventory
// service status.
func (h *HealthReporter) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn(ctx, "record store unreachable", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(InventoryServiceName, status)
	return status
}

// Run probes immediately and then every interval until ctx is done.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		h.Probe(probeCtx)
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown marks every service NOT_SERVING; later probes are ignored.
func (h *HealthReporter) Shutdown() {
	h.server.Shutdown()
}
