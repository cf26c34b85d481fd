package registry

import (
	"context"
	"errors"
	"testing"

	registryv1 "github.com/louisbranch/mutation-registry/api/registry/v1"
	"github.com/louisbranch/mutation-registry/internal/platform/requestctx"
	"github.com/louisbranch/mutation-registry/internal/services/registry/domain"
	"github.com/louisbranch/mutation-registry/internal/services/registry/storage"
	"github.com/louisbranch/mutation-registry/internal/services/registry/storage/memory"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type failingStore struct {
	storage.MutationStore
}

func (failingStore) ListMutations(context.Context) ([]storage.AuthoredMutation, error) {
	return nil, errors.New("disk on fire")
}

func newTestService(policy domain.CopyPolicy) *Service {
	return NewService(domain.NewRegistry(memory.New(), policy))
}

func as(account string) context.Context {
	return requestctx.WithAccountID(context.Background(), account)
}

func assertCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if status.Code(err) != want {
		t.Fatalf("code = %v, want %v (err %v)", status.Code(err), want, err)
	}
}

func createMutation(t *testing.T, svc *Service, author, id, description string, overrides ...registryv1.Override) {
	t.Helper()
	resp, err := svc.CreateMutation(as(author), &registryv1.CreateMutationRequest{
		MutationID:  id,
		Description: description,
		Overrides:   overrides,
	})
	if err != nil {
		t.Fatalf("create %s/%s: %v", author, id, err)
	}
	if !resp.Created {
		t.Fatalf("create %s/%s: created = false", author, id)
	}
}

func getMutation(t *testing.T, svc *Service, author, id string) *registryv1.GetMutationResponse {
	t.Helper()
	resp, err := svc.GetMutation(context.Background(), &registryv1.GetMutationRequest{AuthorID: author, MutationID: id})
	if err != nil {
		t.Fatalf("get %s/%s: %v", author, id, err)
	}
	return resp
}

func TestNilRequests(t *testing.T) {
	svc := newTestService(domain.CopyPolicyOpen)
	ctx := as("alice.near")

	_, err := svc.CreateMutation(ctx, nil)
	assertCode(t, err, codes.InvalidArgument)
	_, err = svc.UpdateMutation(ctx, nil)
	assertCode(t, err, codes.InvalidArgument)
	_, err = svc.CopyOverrides(ctx, nil)
	assertCode(t, err, codes.InvalidArgument)
	_, err = svc.GetMutation(ctx, nil)
	assertCode(t, err, codes.InvalidArgument)
	_, err = svc.GetAllMutations(ctx, nil)
	assertCode(t, err, codes.InvalidArgument)
	_, err = svc.GetMutationsByAuthor(ctx, nil)
	assertCode(t, err, codes.InvalidArgument)
	_, err = svc.ListAuthors(ctx, nil)
	assertCode(t, err, codes.InvalidArgument)
}

func TestUnconfiguredService(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.GetAllMutations(context.Background(), &registryv1.GetAllMutationsRequest{})
	assertCode(t, err, codes.Internal)
}

func TestCreateAndGetMutation(t *testing.T) {
	svc := newTestService(domain.CopyPolicyOpen)
	createMutation(t, svc, "alice.near", "dark", "dark header",
		registryv1.Override{FromSrc: "a.near/widget/Header", ToSrc: "b.near/widget/Header"})

	resp := getMutation(t, svc, "alice.near", "dark")
	if !resp.Found || resp.Mutation == nil {
		t.Fatalf("response = %+v, want found", resp)
	}
	if resp.Mutation.Description != "dark header" || len(resp.Mutation.Overrides) != 1 {
		t.Fatalf("mutation = %+v", resp.Mutation)
	}

	missing := getMutation(t, svc, "alice.near", "missing")
	if missing.Found || missing.Mutation != nil {
		t.Fatalf("response = %+v, want absent", missing)
	}
}

func TestCreateMutationAuth(t *testing.T) {
	svc := newTestService(domain.CopyPolicyOpen)

	_, err := svc.CreateMutation(context.Background(), &registryv1.CreateMutationRequest{MutationID: "m"})
	assertCode(t, err, codes.Unauthenticated)

	_, err = svc.CreateMutation(as("alice.near"), &registryv1.CreateMutationRequest{AuthorID: "bob.near", MutationID: "m"})
	assertCode(t, err, codes.PermissionDenied)
	if getMutation(t, svc, "bob.near", "m").Found || getMutation(t, svc, "alice.near", "m").Found {
		t.Fatal("rejected create must not store anything")
	}

	if _, err := svc.CreateMutation(as("alice.near"), &registryv1.CreateMutationRequest{AuthorID: "alice.near", MutationID: "m"}); err != nil {
		t.Fatalf("explicit matching author: %v", err)
	}

	if _, err := svc.CreateMutation(as("alice.near"), &registryv1.CreateMutationRequest{MutationID: " ", Description: "space"}); err != nil {
		t.Fatalf("whitespace mutation id: %v", err)
	}
	if resp := getMutation(t, svc, "alice.near", " "); !resp.Found || resp.Mutation.Description != "space" {
		t.Fatalf("response = %+v, want stored mutation", resp)
	}
	if resp := getMutation(t, svc, "", ""); resp.Found {
		t.Fatalf("response = %+v, want absent", resp)
	}
}

func TestUpdateMutation(t *testing.T) {
	svc := newTestService(domain.CopyPolicyOpen)
	createMutation(t, svc, "alice.near", "m", "d", registryv1.Override{FromSrc: "a", ToSrc: "b"})

	description := "d2"
	if _, err := svc.UpdateMutation(as("alice.near"), &registryv1.UpdateMutationRequest{MutationID: "m", Description: &description}); err != nil {
		t.Fatalf("update description: %v", err)
	}
	got := getMutation(t, svc, "alice.near", "m").Mutation
	if got.Description != "d2" || len(got.Overrides) != 1 {
		t.Fatalf("after description update = %+v", got)
	}

	empty := []registryv1.Override{}
	if _, err := svc.UpdateMutation(as("alice.near"), &registryv1.UpdateMutationRequest{MutationID: "m", Overrides: &empty}); err != nil {
		t.Fatalf("clear overrides: %v", err)
	}
	got = getMutation(t, svc, "alice.near", "m").Mutation
	if got.Description != "d2" || len(got.Overrides) != 0 {
		t.Fatalf("after clear = %+v", got)
	}

	_, err := svc.UpdateMutation(as("bob.near"), &registryv1.UpdateMutationRequest{AuthorID: "alice.near", MutationID: "m", Description: &description})
	assertCode(t, err, codes.PermissionDenied)

	if _, err := svc.UpdateMutation(as("alice.near"), &registryv1.UpdateMutationRequest{MutationID: "ghost", Description: &description}); err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if getMutation(t, svc, "alice.near", "ghost").Found {
		t.Fatal("update must not create a mutation")
	}
}

func TestCopyOverrides(t *testing.T) {
	svc := newTestService(domain.CopyPolicyOpen)
	createMutation(t, svc, "bob.near", "s", "source", registryv1.Override{FromSrc: "a", ToSrc: "b"})
	createMutation(t, svc, "alice.near", "t", "target", registryv1.Override{FromSrc: "x", ToSrc: "y"})

	_, err := svc.CopyOverrides(as("carol.near"), &registryv1.CopyOverridesRequest{
		SourceAuthorID: "bob.near", SourceMutationID: "s", TargetAuthorID: "alice.near", TargetMutationID: "t",
	})
	assertCode(t, err, codes.PermissionDenied)

	if _, err := svc.CopyOverrides(as("alice.near"), &registryv1.CopyOverridesRequest{
		SourceAuthorID: "bob.near", SourceMutationID: "s", TargetMutationID: "t",
	}); err != nil {
		t.Fatalf("copy: %v", err)
	}
	got := getMutation(t, svc, "alice.near", "t").Mutation
	if got.Description != "target" || len(got.Overrides) != 1 || got.Overrides[0].FromSrc != "a" {
		t.Fatalf("target = %+v", got)
	}

	_, err = svc.CopyOverrides(as("alice.near"), &registryv1.CopyOverridesRequest{
		SourceAuthorID: "bob.near", SourceMutationID: "nope", TargetMutationID: "t",
	})
	assertCode(t, err, codes.NotFound)
	_, err = svc.CopyOverrides(as("alice.near"), &registryv1.CopyOverridesRequest{
		SourceAuthorID: "bob.near", SourceMutationID: "s", TargetMutationID: "nope",
	})
	assertCode(t, err, codes.NotFound)
}

func TestCopyOverridesOwnerOnly(t *testing.T) {
	svc := newTestService(domain.CopyPolicyOwnerOnly)
	createMutation(t, svc, "bob.near", "s", "source", registryv1.Override{FromSrc: "a", ToSrc: "b"})
	createMutation(t, svc, "alice.near", "t", "target")

	_, err := svc.CopyOverrides(as("alice.near"), &registryv1.CopyOverridesRequest{
		SourceAuthorID: "bob.near", SourceMutationID: "s", TargetMutationID: "t",
	})
	assertCode(t, err, codes.PermissionDenied)
}

func TestNotFoundCarriesLocalizedDetails(t *testing.T) {
	svc := newTestService(domain.CopyPolicyOpen)
	createMutation(t, svc, "bob.near", "s", "source")

	ctx := metadata.NewIncomingContext(as("alice.near"), metadata.Pairs("accept-language", "pt-BR"))
	_, err := svc.CopyOverrides(ctx, &registryv1.CopyOverridesRequest{
		SourceAuthorID: "bob.near", SourceMutationID: "s", TargetMutationID: "t",
	})
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.NotFound {
		t.Fatalf("err = %v, want NotFound status", err)
	}

	var reason, message string
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			reason = d.GetReason()
		case *errdetails.LocalizedMessage:
			message = d.GetMessage()
		}
	}
	if reason != "TARGET_MUTATION_NOT_FOUND" {
		t.Fatalf("reason = %q", reason)
	}
	if message != "A mutação de destino t de alice.near não foi encontrada." {
		t.Fatalf("message = %q", message)
	}
}

func TestGetAllAndByAuthor(t *testing.T) {
	svc := newTestService(domain.CopyPolicyOpen)
	createMutation(t, svc, "alice.near", "dark", "a")
	createMutation(t, svc, "alice.near", "light", "b")
	createMutation(t, svc, "bob.near", "dark", "c")

	all, err := svc.GetAllMutations(context.Background(), &registryv1.GetAllMutationsRequest{})
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(all.Entries))
	}

	filtered, err := svc.GetAllMutations(context.Background(), &registryv1.GetAllMutationsRequest{Filter: `author_id = "bob.near"`})
	if err != nil {
		t.Fatalf("get filtered: %v", err)
	}
	if len(filtered.Entries) != 1 || filtered.Entries[0].Mutation.Description != "c" {
		t.Fatalf("entries = %+v", filtered.Entries)
	}

	_, err = svc.GetAllMutations(context.Background(), &registryv1.GetAllMutationsRequest{Filter: `bogus = "x"`})
	assertCode(t, err, codes.InvalidArgument)

	byAuthor, err := svc.GetMutationsByAuthor(context.Background(), &registryv1.GetMutationsByAuthorRequest{AuthorID: "alice.near"})
	if err != nil {
		t.Fatalf("by author: %v", err)
	}
	if len(byAuthor.Entries) != 2 {
		t.Fatalf("entries = %+v", byAuthor.Entries)
	}

	unknown, err := svc.GetMutationsByAuthor(context.Background(), &registryv1.GetMutationsByAuthorRequest{AuthorID: "nobody"})
	if err != nil {
		t.Fatalf("unknown author: %v", err)
	}
	if unknown.Entries == nil || len(unknown.Entries) != 0 {
		t.Fatalf("entries = %#v, want empty", unknown.Entries)
	}

	authors, err := svc.ListAuthors(context.Background(), &registryv1.ListAuthorsRequest{})
	if err != nil {
		t.Fatalf("list authors: %v", err)
	}
	if len(authors.AuthorIDs) != 2 {
		t.Fatalf("authors = %v", authors.AuthorIDs)
	}
}

func TestStorageFailureIsInternal(t *testing.T) {
	svc := NewService(domain.NewRegistry(failingStore{MutationStore: memory.New()}, domain.CopyPolicyOpen))
	_, err := svc.GetAllMutations(context.Background(), &registryv1.GetAllMutationsRequest{})
	assertCode(t, err, codes.Internal)
	if st, _ := status.FromError(err); st.Message() != "an unexpected error occurred" {
		t.Fatalf("message = %q", st.Message())
	}
}
