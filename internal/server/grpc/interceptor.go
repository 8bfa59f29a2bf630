package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/bizdesk/internal/common"
	"github.com/dmitrijs2005/bizdesk/internal/server/authz"
	"github.com/dmitrijs2005/bizdesk/internal/server/session"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	healthServicePrefix   = "/grpc.health.v1.Health/"
	channelzServicePrefix = "/grpc.channelz.v1.Channelz/"
)

func public(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, healthServicePrefix)
}

// allowed returns the roles that may call fullMethod. Server introspection
// is for admins; everything else is open to any signed-in caller.
func allowed(fullMethod string) authz.RoleSet {
	if strings.HasPrefix(fullMethod, channelzServicePrefix) {
		return authz.Admin
	}
	return authz.Authenticated
}

// authenticate resolves the bearer credential in ctx metadata and returns
// a context carrying the caller's session.
func (s *GRPCServer) authenticate(ctx context.Context) (context.Context, error) {
	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
			header = values[0]
		}
	}

	token, ok := session.BearerToken(header)
	if !ok || token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return session.NewContext(ctx, &session.Session{Via: session.ViaBearer, Identity: session.IdentityFromClaims(claims)}), nil
}

// authorize authenticates the caller and applies the role set of fullMethod.
func (s *GRPCServer) authorize(ctx context.Context, fullMethod string) (context.Context, error) {
	ctx, err := s.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := authz.Check(session.FromContext(ctx), allowed(fullMethod)); err != nil {
		if errors.Is(err, common.ErrorForbidden) {
			return nil, status.Error(codes.PermissionDenied, "forbidden")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	return ctx, nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if public(info.FullMethod) {
		return handler(ctx, req)
	}

	ctx, err := s.authorize(ctx, info.FullMethod)
	if err != nil {
		s.logger.Debug(context.Background(), "rpc rejected", "method", info.FullMethod, "error", err)
		return nil, err
	}
	return handler(ctx, req)
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (a *authedStream) Context() context.Context { return a.ctx }

func (s *GRPCServer) accessTokenStreamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if public(info.FullMethod) {
		return handler(srv, ss)
	}

	ctx, err := s.authorize(ss.Context(), info.FullMethod)
	if err != nil {
		s.logger.Debug(context.Background(), "stream rejected", "method", info.FullMethod, "error", err)
		return err
	}
	return handler(srv, &authedStream{ServerStream: ss, ctx: ctx})
}
