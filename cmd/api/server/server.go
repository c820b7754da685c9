package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/CSYE6225NCLOUD/webapp/cmd/api/di"
	"github.com/CSYE6225NCLOUD/webapp/internal/config"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	HTTP   *http.Server
	GRPC   *grpc.Server // nil when GRPC_ENABLED is false
}

// New creates a new server instance
func New(c *di.Container) *Server {
	s := &Server{
		Config: c.Config,
		Logger: c.Logger,
	}
	s.HTTP = SetupGinServer(c, s.httpAddress(), c.Logger)
	if c.Config.App.GRPCEnabled {
		s.GRPC = SetupGRPC(c, c.Logger)
	}
	return s
}

// Start runs the HTTP server and, when enabled, the gRPC server, until parent
// is cancelled or one of them fails.
func (s *Server) Start(parent context.Context) error {
	g, ctx := errgroup.WithContext(parent)

	g.Go(func() error {
		if err := s.startHTTP(ctx); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	if s.GRPC != nil {
		g.Go(func() error {
			if err := s.startGRPC(ctx); err != nil {
				return fmt.Errorf("failed to start gRPC server: %w", err)
			}
			return nil
		})
	}

	// If one server fails, stop the other so Wait can return. A cancelled
	// parent is left to the caller's graceful shutdown.
	g.Go(func() error {
		<-ctx.Done()
		if parent.Err() == nil {
			_ = s.HTTP.Close()
			if s.GRPC != nil {
				s.GRPC.Stop()
			}
		}
		return nil
	})

	return g.Wait()
}

// startHTTP starts the Gin HTTP server
func (s *Server) startHTTP(ctx context.Context) error {
	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", s.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.Logger.Info("HTTP server running", zap.String("address", s.HTTP.Addr))
	if err := s.HTTP.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// startGRPC starts the gRPC server
func (s *Server) startGRPC(ctx context.Context) error {
	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", s.grpcAddress())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.Logger.Info("gRPC server running", zap.String("address", s.grpcAddress()))
	if err := s.GRPC.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// grpcAddress returns the gRPC server address
func (s *Server) grpcAddress() string {
	return ":" + s.Config.App.GRPCPort
}

// httpAddress returns the HTTP server address
func (s *Server) httpAddress() string {
	return ":" + s.Config.App.HTTPPort
}
