package grpc

import (
	"context"
	"fmt"
	"net"

	"github.com/tasyapp/billing/internal/config"
	"github.com/tasyapp/billing/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server exposes the standard gRPC health service for orchestration probes
type Server struct {
	config *config.Config
	logger *zap.Logger
	server *grpc.Server
	health *health.Server
}

func NewServer(cfg *config.Config, log *zap.Logger) *Server {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(logger.NewGrpcUnaryServerInterceptor(log)),
		grpc.ChainStreamInterceptor(logger.NewGrpcStreamServerInterceptor(log)),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)

	return &Server{
		config: cfg,
		logger: log,
		server: server,
		health: healthServer,
	}
}

func (s *Server) Start() error {
	addr := s.config.Server.GRPC.Addr()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.logger.Info("Starting gRPC server", zap.String("address", addr))
	return s.Serve(listener)
}

// Serve marks the service as serving and blocks until the server stops
func (s *Server) Serve(listener net.Listener) error {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(s.config.Service.Name, healthpb.HealthCheckResponse_SERVING)

	if err := s.server.Serve(listener); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
	}
	return nil
}
