// Package grpc serves the gRPC surface: health checking, reflection for
// grpcurl and the authenticated account queries, all behind the token
// interceptor.
package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"adboard-backend/internal/api/grpc/interceptor"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/security"
)

// NewServer builds a gRPC server with health, reflection and, when accounts is
// non-nil, the account service registered. The health server starts out
// NOT_SERVING until MonitorHealth reports otherwise.
func NewServer(tm security.TokenManager, accounts AccountHandler) (*grpc.Server, *health.Server) {
	auth := interceptor.NewAuthInterceptor(tm)
	s := grpc.NewServer(
		grpc.UnaryInterceptor(auth.Unary()),
		grpc.StreamInterceptor(auth.Stream()),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	if accounts != nil {
		RegisterAccountServer(s, accounts)
	}

	// Register reflection service for grpcurl
	reflection.Register(s)
	return s, hs
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// MonitorHealth pings p every interval and mirrors the result into hs until
// ctx is done. A nil Pinger reports SERVING once.
func MonitorHealth(ctx context.Context, hs *health.Server, p Pinger, interval time.Duration) {
	if p == nil {
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		return
	}

	check := func() {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := p.PingContext(pctx); err != nil {
			logger.Warn("Health check failed", "error", err)
			hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			return
		}
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			check()
		}
	}
}
