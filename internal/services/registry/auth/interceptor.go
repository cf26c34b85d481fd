package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	apperrors "github.com/louisbranch/mutation-registry/internal/platform/errors"
	"github.com/louisbranch/mutation-registry/internal/platform/requestctx"
)

// AuthorizationHeader carries "Bearer <token>".
const AuthorizationHeader = "authorization"

const bearerPrefix = "bearer "

// UnaryServerInterceptor resolves the caller from the bearer token. Calls
// without a token proceed anonymously; a malformed or invalid token fails
// the call.
func UnaryServerInterceptor(cfg Config) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get(AuthorizationHeader)
		if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
			return handler(ctx, req)
		}

		raw := strings.TrimSpace(values[0])
		if len(raw) < len(bearerPrefix) || !strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
			err := apperrors.New(apperrors.CodeTokenInvalid, "authorization must use the Bearer scheme")
			return nil, apperrors.HandleError(err, apperrors.LocaleFromContext(ctx))
		}
		claims, err := Verify(raw[len(bearerPrefix):], cfg)
		if err != nil {
			return nil, apperrors.HandleError(err, apperrors.LocaleFromContext(ctx))
		}
		return handler(requestctx.WithAccountID(ctx, claims.AccountID), req)
	}
}

// BearerContext attaches a bearer token to outgoing metadata.
func BearerContext(ctx context.Context, token string) context.Context {
	if strings.TrimSpace(token) == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, AuthorizationHeader, "Bearer "+token)
}
