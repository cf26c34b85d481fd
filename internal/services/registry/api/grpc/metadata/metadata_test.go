package metadata

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/louisbranch/mutation-registry/internal/platform/requestctx"
)

func TestFirstMetadataValue(t *testing.T) {
	t.Parallel()

	md := metadata.MD{
		"x-mutation-registry-request-id": {"bad\nvalue", "req-1"},
	}
	if got := FirstMetadataValue(md, RequestIDHeader); got != "req-1" {
		t.Fatalf("value = %q, want req-1", got)
	}
	if got := FirstMetadataValue(nil, RequestIDHeader); got != "" {
		t.Fatalf("value = %q, want empty", got)
	}
}

func TestIsPrintableASCII(t *testing.T) {
	t.Parallel()

	if IsPrintableASCII("") || IsPrintableASCII("é") || IsPrintableASCII("a\tb") {
		t.Fatal("expected non-printable values to be rejected")
	}
	if !IsPrintableASCII("req-123") {
		t.Fatal("expected printable value")
	}
}

func TestUnaryServerInterceptorGeneratorError(t *testing.T) {
	t.Parallel()

	interceptor := UnaryServerInterceptor(func() (string, error) { return "", errors.New("no entropy") })
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/m"},
		func(ctx context.Context, req any) (any, error) {
			t.Fatal("handler should not run")
			return nil, nil
		})
	if status.Code(err) != codes.Internal {
		t.Fatalf("code = %v, want Internal", status.Code(err))
	}
}

func TestAccessLogInterceptor(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	interceptor := AccessLogInterceptor(zap.New(core))

	ctx := requestctx.WithRequestID(requestctx.WithAccountID(context.Background(), "alice.near"), "req-1")
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/registry.v1.MutationRegistryService/GetMutation"},
		func(ctx context.Context, req any) (any, error) { return "ok", nil })
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/m"},
		func(ctx context.Context, req any) (any, error) { return nil, status.Error(codes.Internal, "boom") })

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	first := entries[0].ContextMap()
	if first["code"] != "OK" || first["account_id"] != "alice.near" || first["request_id"] != "req-1" {
		t.Fatalf("fields = %v", first)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Fatalf("level = %v, want error", entries[1].Level)
	}
	if _, ok := entries[1].ContextMap()["account_id"]; ok {
		t.Fatal("anonymous call should not log an account")
	}
}
