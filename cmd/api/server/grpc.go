package server

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/CSYE6225NCLOUD/webapp/cmd/api/di"
	grpcadapter "github.com/CSYE6225NCLOUD/webapp/internal/adapter/grpc"
	"github.com/CSYE6225NCLOUD/webapp/internal/adapter/grpc/middleware"
	"github.com/CSYE6225NCLOUD/webapp/pkg/logger"
)

// SetupGRPC creates the gRPC server exposing grpc.health.v1 and reflection.
func SetupGRPC(c *di.Container, l *zap.Logger) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			logger.AccessLogInterceptor(l),
			middleware.RateLimit(c.RateLimiter, l),
		),
	)
	healthpb.RegisterHealthServer(grpcServer, grpcadapter.NewHealthServer(c.Health, l, c.Config.Logger.ServiceName))
	reflection.Register(grpcServer)

	return grpcServer
}
