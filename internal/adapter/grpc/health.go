package grpc

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/CSYE6225NCLOUD/webapp/internal/usecase/health"
	"github.com/CSYE6225NCLOUD/webapp/pkg/logger"
)

// HealthServer implements grpc.health.v1.Health on top of the same store
// check that backs /healthz.
type HealthServer struct {
	healthpb.UnimplementedHealthServer
	checker  health.Checker
	services map[string]struct{}
	log      *zap.Logger
}

// NewHealthServer creates a HealthServer answering for the empty service name
// and for each name in services.
func NewHealthServer(checker health.Checker, log *zap.Logger, services ...string) *HealthServer {
	known := map[string]struct{}{"": {}}
	for _, s := range services {
		known[s] = struct{}{}
	}
	return &HealthServer{checker: checker, services: known, log: log}
}

// Check reports SERVING when the store answers a ping.
func (s *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if _, ok := s.services[req.GetService()]; !ok {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}

	if err := s.checker.Check(ctx); err != nil {
		logger.WithContext(ctx, s.log).Warn("grpc health check failed", zap.Error(err))
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
