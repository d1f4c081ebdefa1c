package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger reports database reachability.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// CheckDatabase pings the database once and sets the serving status of the
// overall server and the estimate service.
func CheckDatabase(ctx context.Context, hs *health.Server, db Pinger, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	st := grpc_health_v1.HealthCheckResponse_SERVING
	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("database ping failed", "error", err)
		st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", st)
	hs.SetServingStatus(ServiceName, st)
}

// WatchDatabase runs CheckDatabase every interval until ctx is done.
func WatchDatabase(ctx context.Context, hs *health.Server, db Pinger, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	CheckDatabase(ctx, hs, db, logger)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			CheckDatabase(ctx, hs, db, logger)
		}
	}
}
