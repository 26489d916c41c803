package server

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/muzz-match-cycle/internal/config"
)

// Registrar attaches one service to the worker's gRPC server.
type Registrar interface {
	Register(s *grpc.Server)
}

// Server wraps the worker's gRPC listener.
type Server struct {
	grpc *grpc.Server
	addr string
}

// NewGRPCServer builds a gRPC server and registers all provided services.
func NewGRPCServer(cfg *config.Config, registrars ...Registrar) *Server {
	grpcServer := grpc.NewServer()

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	return &Server{
		grpc: grpcServer,
		addr: fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port),
	}
}

// Addr is the configured listen address.
func (s *Server) Addr() string { return s.addr }

// Serve listens on the configured address and blocks until ctx is cancelled,
// then stops gracefully.
func (s *Server) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(lis) }()

	select {
	case <-ctx.Done():
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
