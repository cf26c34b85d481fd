package requestctx

import (
	"context"
	"testing"
)

func TestAccountIDFromContextRoundTrip(t *testing.T) {
	ctx := WithAccountID(context.Background(), "alice.near")
	if got := AccountIDFromContext(ctx); got != "alice.near" {
		t.Fatalf("AccountIDFromContext = %q, want %q", got, "alice.near")
	}
}

func TestAccountIDFromContextEmpty(t *testing.T) {
	if got := AccountIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	//nolint:staticcheck // nil context is part of the contract
	if got := AccountIDFromContext(nil); got != "" {
		t.Fatalf("expected empty string for nil context, got %q", got)
	}
}

func TestWithAccountIDNilContext(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	ctx := WithAccountID(nil, "bob.near")
	if got := AccountIDFromContext(ctx); got != "bob.near" {
		t.Fatalf("AccountIDFromContext = %q, want %q", got, "bob.near")
	}
}

func TestRequestIDIsIndependentOfAccount(t *testing.T) {
	ctx := WithRequestID(WithAccountID(context.Background(), "carol"), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("RequestIDFromContext = %q, want req-1", got)
	}
	if got := AccountIDFromContext(ctx); got != "carol" {
		t.Fatalf("AccountIDFromContext = %q, want carol", got)
	}
}
