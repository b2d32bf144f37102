package grpc

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the sync engine
const ServiceName = "taskbridge.Sync"

// Server exposes the standard gRPC health service
type Server struct {
	health *health.Server
	logger *zap.Logger
}

// NewServer creates a new gRPC health server reporting NOT_SERVING until
// SetServing is called
func NewServer(logger *zap.Logger) *Server {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{
		health: hs,
		logger: logger,
	}
}

// Register registers the server with a gRPC server
func (s *Server) Register(grpcServer *grpc.Server) {
	healthpb.RegisterHealthServer(grpcServer, s.health)
	reflection.Register(grpcServer)
}

// SetServing marks the process as ready
func (s *Server) SetServing() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.logger.Info("grpc health serving")
}

// Shutdown marks every service NOT_SERVING and ends watch streams
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.logger.Info("grpc health shut down")
}
