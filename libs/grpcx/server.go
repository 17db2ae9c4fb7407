package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewServer returns a gRPC server with tracing, request id propagation and access logging.
func NewServer(logger *slog.Logger, extra ...grpc.ServerOption) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			UnaryServerRequestIDInterceptor(),
			UnaryServerAccessLogInterceptor(logger),
		),
	}
	opts = append(opts, extra...)
	return grpc.NewServer(opts...)
}

// HealthConfig drives the standard grpc.health.v1 service from the same checks used by /readyz.
type HealthConfig struct {
	Service   string
	Checks    []runtime.ReadyCheck
	PollEvery time.Duration
}

// RegisterHealth registers the health service and keeps its status in sync with cfg.Checks until ctx is done.
func RegisterHealth(ctx context.Context, srv *grpc.Server, logger *slog.Logger, cfg HealthConfig) *health.Server {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 10 * time.Second
	}
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	update := func() {
		st := healthpb.HealthCheckResponse_SERVING
		if failures := runtime.RunChecks(ctx, cfg.Checks...); len(failures) > 0 {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Warn("grpc health not serving", "failures", failures)
		}
		hs.SetServingStatus("", st)
		if cfg.Service != "" {
			hs.SetServingStatus(cfg.Service, st)
		}
	}
	update()

	go func() {
		ticker := time.NewTicker(cfg.PollEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				hs.Shutdown()
				return
			case <-ticker.C:
				update()
			}
		}
	}()
	return hs
}

// Serve listens on addr and serves until ctx is done, then stops gracefully.
func Serve(ctx context.Context, srv *grpc.Server, addr string, logger *slog.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	return nil
}
