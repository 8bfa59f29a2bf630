// Package grpc serves the mobile RPC channel. Every method except the
// health service requires an "authorization: Bearer <access token>"
// metadata entry; the channelz introspection service additionally requires
// the ADMIN role.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/bizdesk/internal/logging"
	"github.com/dmitrijs2005/bizdesk/internal/server/session"
	"google.golang.org/grpc"
	channelzsvc "google.golang.org/grpc/channelz/service"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type GRPCServer struct {
	address  string
	logger   logging.Logger
	tokens   session.AccessVerifier
	health   *health.Server
	register []func(*grpc.Server)
}

// NewGRPCServer builds a server verifying bearer tokens with tokens.
// Extra services are attached with register before Run.
func NewGRPCServer(a string, l logging.Logger, tokens session.AccessVerifier, register ...func(*grpc.Server)) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		tokens:   tokens,
		health:   health.NewServer(),
		register: register,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.accessTokenStreamInterceptor),
	)

	healthpb.RegisterHealthServer(srv, s.health)
	channelzsvc.RegisterChannelzServiceToServer(srv)
	for _, r := range s.register {
		r(srv)
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
