package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	registryv1 "github.com/louisbranch/mutation-registry/api/registry/v1"
	platformgrpc "github.com/louisbranch/mutation-registry/internal/platform/grpc"
	registrymetadata "github.com/louisbranch/mutation-registry/internal/services/registry/api/grpc/metadata"
	"github.com/louisbranch/mutation-registry/internal/services/registry/auth"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func startServer(t *testing.T) registryv1.MutationRegistryServiceClient {
	t.Helper()

	srv, err := NewWithAddr("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(runCtx)
	}()
	t.Cleanup(func() {
		runCancel()
		select {
		case serveErr := <-serveDone:
			if serveErr != nil {
				t.Fatalf("serve: %v", serveErr)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for server shutdown")
		}
	})

	conn, err := platformgrpc.DialWithHealth(context.Background(), srv.Addr(), 5*time.Second, nil)
	if err != nil {
		t.Fatalf("dial registry server: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := conn.Close(); closeErr != nil {
			t.Fatalf("close gRPC connection: %v", closeErr)
		}
	})
	return registryv1.NewMutationRegistryServiceClient(conn)
}

func bearer(t *testing.T, account string) context.Context {
	t.Helper()
	key, err := auth.DecodeKey(testKeyHex)
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}
	token, err := auth.Issue(auth.Config{Key: key}, account, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return auth.BearerContext(context.Background(), token)
}

func setEnv(t *testing.T, backend string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MUTATION_REGISTRY_AUTH_HMAC_KEY", testKeyHex)
	t.Setenv("MUTATION_REGISTRY_STORAGE_BACKEND", backend)
	t.Setenv("MUTATION_REGISTRY_DB_PATH", filepath.Join(dir, "registry.db"))
	t.Setenv("MUTATION_REGISTRY_BADGER_DIR", filepath.Join(dir, "badger"))
	t.Setenv("MUTATION_REGISTRY_CACHE_TTL", "0s")
	t.Setenv("MUTATION_REGISTRY_COPY_POLICY", "open")
}

func TestServer_RoundTripPerBackend(t *testing.T) {
	for _, backend := range []string{BackendSQLite, BackendBadger, BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			setEnv(t, backend)
			t.Setenv("MUTATION_REGISTRY_CACHE_TTL", "1m")
			client := startServer(t)

			var header metadata.MD
			createResp, err := client.CreateMutation(bearer(t, "alice.near"), &registryv1.CreateMutationRequest{
				MutationID:  "dark",
				Description: "dark header",
				Overrides:   []registryv1.Override{{FromSrc: "a.near/widget/Header", ToSrc: "b.near/widget/Header"}},
			}, grpc.Header(&header))
			if err != nil {
				t.Fatalf("create mutation: %v", err)
			}
			if !createResp.Created {
				t.Fatal("created = false")
			}
			if ids := header.Get(registrymetadata.RequestIDHeader); len(ids) != 1 || ids[0] == "" {
				t.Fatalf("request id header = %v", ids)
			}

			if _, err := client.CreateMutation(bearer(t, "bob.near"), &registryv1.CreateMutationRequest{
				MutationID:  "light",
				Description: "light header",
				Overrides:   []registryv1.Override{{FromSrc: "x", ToSrc: "y"}},
			}); err != nil {
				t.Fatalf("create bob mutation: %v", err)
			}

			if _, err := client.CopyOverrides(bearer(t, "alice.near"), &registryv1.CopyOverridesRequest{
				SourceAuthorID:   "bob.near",
				SourceMutationID: "light",
				TargetMutationID: "dark",
			}); err != nil {
				t.Fatalf("copy overrides: %v", err)
			}

			getResp, err := client.GetMutation(context.Background(), &registryv1.GetMutationRequest{AuthorID: "alice.near", MutationID: "dark"})
			if err != nil {
				t.Fatalf("get mutation: %v", err)
			}
			if !getResp.Found || getResp.Mutation.Description != "dark header" ||
				len(getResp.Mutation.Overrides) != 1 || getResp.Mutation.Overrides[0].FromSrc != "x" {
				t.Fatalf("mutation = %+v", getResp)
			}

			allResp, err := client.GetAllMutations(context.Background(), &registryv1.GetAllMutationsRequest{})
			if err != nil {
				t.Fatalf("get all: %v", err)
			}
			if len(allResp.Entries) != 2 {
				t.Fatalf("entries = %d, want 2", len(allResp.Entries))
			}

			byAuthor, err := client.GetMutationsByAuthor(context.Background(), &registryv1.GetMutationsByAuthorRequest{AuthorID: "carol.near"})
			if err != nil {
				t.Fatalf("by author: %v", err)
			}
			if len(byAuthor.Entries) != 0 {
				t.Fatalf("entries = %+v, want empty", byAuthor.Entries)
			}
		})
	}
}

func TestServer_RejectsUnauthenticatedAndForeignWrites(t *testing.T) {
	setEnv(t, BackendMemory)
	client := startServer(t)

	_, err := client.CreateMutation(context.Background(), &registryv1.CreateMutationRequest{MutationID: "m"})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("anonymous create code = %v, want Unauthenticated", status.Code(err))
	}

	badToken := metadata.AppendToOutgoingContext(context.Background(), auth.AuthorizationHeader, "Bearer nope")
	_, err = client.GetAllMutations(badToken, &registryv1.GetAllMutationsRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("invalid token code = %v, want Unauthenticated", status.Code(err))
	}

	_, err = client.CreateMutation(bearer(t, "alice.near"), &registryv1.CreateMutationRequest{AuthorID: "bob.near", MutationID: "m"})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("foreign create code = %v, want PermissionDenied", status.Code(err))
	}
}

func TestServer_OwnerOnlyCopyPolicy(t *testing.T) {
	setEnv(t, BackendMemory)
	t.Setenv("MUTATION_REGISTRY_COPY_POLICY", "owner-only")
	client := startServer(t)

	for _, account := range []string{"alice.near", "bob.near"} {
		if _, err := client.CreateMutation(bearer(t, account), &registryv1.CreateMutationRequest{MutationID: "m"}); err != nil {
			t.Fatalf("create %s: %v", account, err)
		}
	}
	_, err := client.CopyOverrides(bearer(t, "alice.near"), &registryv1.CopyOverridesRequest{
		SourceAuthorID: "bob.near", SourceMutationID: "m", TargetMutationID: "m",
	})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("code = %v, want PermissionDenied", status.Code(err))
	}
}

func TestNewWithAddrConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing key", env: map[string]string{"MUTATION_REGISTRY_AUTH_HMAC_KEY": ""}},
		{name: "unknown backend", env: map[string]string{"MUTATION_REGISTRY_STORAGE_BACKEND": "postgres"}},
		{name: "unknown policy", env: map[string]string{"MUTATION_REGISTRY_COPY_POLICY": "strict"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, BackendMemory)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}
			srv, err := NewWithAddr("127.0.0.1:0", nil)
			if err == nil {
				srv.Close()
				t.Fatal("expected configuration error")
			}
		})
	}
}
