package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor returns a gRPC unary server interceptor that
// resolves the request identity from incoming metadata using the same
// ingestion order as the HTTP middleware: forwarded assertion, bearer
// token, then plain x-user-* metadata.
//
// An invalid bearer token or the absence of any resolvable identity
// yields an Unauthenticated status. On success the normalized user is
// stored in the handler context.
func UnaryServerInterceptor(resolver *Resolver) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, err := resolveGRPCIdentity(ctx, resolver)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor returns a gRPC stream server interceptor
// performing the same identity resolution as [UnaryServerInterceptor],
// wrapping the stream to carry the enriched context.
func StreamServerInterceptor(resolver *Resolver) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, err := resolveGRPCIdentity(ss.Context(), resolver)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

// UnaryClientInterceptor returns a gRPC unary client interceptor that
// propagates the normalized identity from the context to outgoing
// metadata as x-user-* entries. If no identity is in the context, the
// call proceeds without identity metadata.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		ctx = propagateGRPCIdentity(ctx)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor returns a gRPC stream client interceptor with
// the same propagation behavior as [UnaryClientInterceptor].
func StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		ctx = propagateGRPCIdentity(ctx)
		return streamer(ctx, desc, cc, method, opts...)
	}
}

// resolveGRPCIdentity resolves the identity from incoming gRPC metadata
// and returns a context carrying it.
func resolveGRPCIdentity(ctx context.Context, resolver *Resolver) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, status.Error(codes.Unauthenticated, "missing metadata")
	}

	getHeader := func(key string) string {
		if values := md.Get(strings.ToLower(key)); len(values) > 0 {
			return values[0]
		}
		return ""
	}

	user, claims, err := resolver.Resolve(ctx, getHeader)
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, "token validation failed")
	}
	if user == nil {
		return ctx, status.Error(codes.Unauthenticated, "no credentials presented")
	}

	ctx = ContextWithUser(ctx, user)
	if claims != nil {
		ctx = ContextWithClaims(ctx, claims)
	}
	return ctx, nil
}

// propagateGRPCIdentity adds the normalized identity from the context
// to outgoing gRPC metadata.
func propagateGRPCIdentity(ctx context.Context) context.Context {
	user, ok := UserFromContext(ctx)
	if !ok {
		return ctx
	}

	headers := UserToHeaders(user)
	pairs := make([]string, 0, len(headers)*2)
	for k, v := range headers {
		pairs = append(pairs, strings.ToLower(k), v)
	}
	md := metadata.Pairs(pairs...)

	if existing, ok := metadata.FromOutgoingContext(ctx); ok {
		md = metadata.Join(existing, md)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

// wrappedServerStream wraps a grpc.ServerStream to override its Context
// method, since ServerStream.Context() returns the original stream
// context without the identity added by the interceptor.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context containing the identity.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
