// Package health keeps the gRPC health status in step with the database.
package health

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/starter-api/internal/logger"
)

// ServiceName is the health service name reported next to the overall "" entry.
const ServiceName = "starter-api"

const pingTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Watcher periodically pings the database and updates the health server.
type Watcher struct {
	pinger   Pinger
	server   *health.Server
	interval time.Duration
	logger   *logger.Logger
	serving  bool
	checked  bool
}

// NewWatcher creates a Watcher updating server every interval.
func NewWatcher(pinger Pinger, server *health.Server, interval time.Duration, logger *logger.Logger) *Watcher {
	return &Watcher{
		pinger:   pinger,
		server:   server,
		interval: interval,
		logger:   logger,
	}
}

// Run checks immediately and then every interval until ctx is done, at
// which point every service is marked NOT_SERVING.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			w.server.Shutdown()
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check pings once and publishes the result.
func (w *Watcher) Check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := w.pinger.Ping(pingCtx)
	serving := err == nil

	if !w.checked || serving != w.serving {
		if serving {
			w.logger.Info("Health: database reachable")
		} else {
			w.logger.Error("Health: database unreachable", "error", err.Error())
		}
	}
	w.checked = true
	w.serving = serving

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	w.server.SetServingStatus("", status)
	w.server.SetServingStatus(ServiceName, status)
}
