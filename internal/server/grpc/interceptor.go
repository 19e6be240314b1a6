package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/identity"
	"github.com/carbonx-dev/carbonx/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// methodPolicy says whether a method needs a token and which roles it admits.
type methodPolicy struct {
	public bool
	roles  []identity.Role
}

var (
	publicPrefixes = []string{
		"/grpc.health.v1.Health/",
	}
	adminPrefixes = []string{
		"/grpc.reflection.v1.ServerReflection/",
		"/grpc.reflection.v1alpha.ServerReflection/",
	}
)

// policyFor is deny-by-default: anything not listed needs a valid token.
func policyFor(fullMethod string) methodPolicy {
	for _, p := range publicPrefixes {
		if strings.HasPrefix(fullMethod, p) {
			return methodPolicy{public: true}
		}
	}
	for _, p := range adminPrefixes {
		if strings.HasPrefix(fullMethod, p) {
			return methodPolicy{roles: []identity.Role{identity.RoleAdmin}}
		}
	}
	return methodPolicy{}
}

func (s *GRPCServer) authorize(ctx context.Context, fullMethod string) (context.Context, error) {
	policy := policyFor(fullMethod)
	if policy.public {
		return ctx, nil
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(strings.ToLower(common.AuthorizationHeaderName)); len(values) > 0 {
			header = values[0]
		}
	}

	p, err := s.gate.Check(ctx, fullMethod, header, policy.roles...)
	if err != nil {
		s.logger.Debug(ctx, "rpc denied", "method", fullMethod, "error", err)
		if errors.Is(err, common.ErrForbidden) {
			return nil, status.Error(codes.PermissionDenied, "access denied")
		}
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	return auth.ContextWithPrincipal(ctx, p), nil
}

func (s *GRPCServer) unaryAuthInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ctx, err := s.authorize(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

func (s *GRPCServer) streamAuthInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := s.authorize(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &principalStream{ServerStream: ss, ctx: ctx})
}

// principalStream overrides Context so handlers see the verified principal.
type principalStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *principalStream) Context() context.Context { return w.ctx }
