package api

import (
	"context"
	"fmt"
	"net"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/miradorstack/mirador-thermal/internal/config"
)

// GRPCServer serves the Dashboard snapshot service alongside the standard
// health and reflection services. Health reports SERVING for both the
// server as a whole ("") and DashboardServiceName until Shutdown.
type GRPCServer struct {
	srv    *grpc.Server
	lis    net.Listener
	health *health.Server
}

// NewGRPCServer listens on cfg.GRPCAddress and registers dashboard. Every
// snapshot call and stream is timed by the grpc-prometheus interceptors.
func NewGRPCServer(cfg config.ServerConfig, dashboard DashboardServer, opts ...grpc.ServerOption) (*GRPCServer, error) {
	lis, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddress, err)
	}

	grpc_prometheus.EnableHandlingTimeHistogram()
	srv := grpc.NewServer(append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}, opts...)...)

	RegisterDashboardServer(srv, dashboard)
	grpc_prometheus.Register(srv)

	hs := health.NewServer()
	for _, name := range []string{"", DashboardServiceName} {
		hs.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &GRPCServer{srv: srv, lis: lis, health: hs}, nil
}

// Start blocks serving snapshot calls until Shutdown.
func (s *GRPCServer) Start() error {
	if s.srv == nil || s.lis == nil {
		return fmt.Errorf("grpc server not initialised")
	}
	return s.srv.Serve(s.lis)
}

// Shutdown flips health to NOT_SERVING so clients stop routing here, then
// drains open WatchSnapshots streams. Streams still open when ctx expires are
// cut off.
func (s *GRPCServer) Shutdown(ctx context.Context) {
	if s.srv == nil {
		return
	}
	s.health.Shutdown()

	drained := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		s.srv.Stop()
	}
}

// Address is the bound listener address, useful when cfg asked for port 0.
func (s *GRPCServer) Address() string {
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}
