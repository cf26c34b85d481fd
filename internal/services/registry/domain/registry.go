// Package domain implements the mutation registry: ownership rules, the copy
// policy and the translation of storage outcomes into domain errors.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/mutation-registry/internal/platform/errors"
	"github.com/louisbranch/mutation-registry/internal/platform/requestctx"
	"github.com/louisbranch/mutation-registry/internal/services/registry/filter"
	"github.com/louisbranch/mutation-registry/internal/services/registry/storage"
)

// Registry owns every mutation operation. Writes always target the caller's
// own namespace; reads are open to anyone.
type Registry struct {
	store  storage.MutationStore
	policy CopyPolicy
}

// NewRegistry builds a registry over store. An empty policy means open.
func NewRegistry(store storage.MutationStore, policy CopyPolicy) *Registry {
	if policy == "" {
		policy = CopyPolicyOpen
	}
	return &Registry{store: store, policy: policy}
}

// Policy returns the active copy policy.
func (r *Registry) Policy() CopyPolicy {
	return r.policy
}

// Caller returns the authenticated account id carried by ctx, unchanged.
func Caller(ctx context.Context) (string, error) {
	caller := requestctx.AccountIDFromContext(ctx)
	if strings.TrimSpace(caller) == "" {
		return "", apperrors.New(apperrors.CodeCallerUnauthenticated, "caller is not authenticated")
	}
	return caller, nil
}

// RequireAuthor fails with PERMISSION_DENIED when an explicitly named author
// differs from the caller. An empty author defers to the caller.
func RequireAuthor(ctx context.Context, authorID string) error {
	caller, err := Caller(ctx)
	if err != nil {
		return err
	}
	if authorID != "" && authorID != caller {
		return permissionDenied(caller, authorID)
	}
	return nil
}

func permissionDenied(caller, authorID string) error {
	return apperrors.WithMetadata(
		apperrors.CodePermissionDenied,
		fmt.Sprintf("caller %s may not write as %s", caller, authorID),
		map[string]string{"CallerID": caller, "AuthorID": authorID},
	)
}

// CreateMutation stores mutation under (caller, mutationID), overwriting any
// existing entry. Mutation ids are opaque keys; any string is accepted.
func (r *Registry) CreateMutation(ctx context.Context, mutationID string, mutation storage.Mutation) error {
	caller, err := Caller(ctx)
	if err != nil {
		return err
	}
	key := storage.MutationKey{AuthorID: caller, MutationID: mutationID}
	if err := r.store.PutMutation(ctx, key, mutation); err != nil {
		return fmt.Errorf("create mutation: %w", err)
	}
	return nil
}

// UpdateMutation applies patch to (caller, mutationID). A missing mutation
// is left missing and no error is returned.
func (r *Registry) UpdateMutation(ctx context.Context, mutationID string, patch storage.MutationPatch) error {
	caller, err := Caller(ctx)
	if err != nil {
		return err
	}
	key := storage.MutationKey{AuthorID: caller, MutationID: mutationID}
	err = r.store.PatchMutation(ctx, key, patch)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("update mutation: %w", err)
	}
	return nil
}

// CopyOverrides replaces the override list of (caller, targetMutationID)
// with the list of source. The target description is kept.
func (r *Registry) CopyOverrides(ctx context.Context, source storage.MutationKey, targetMutationID string) error {
	caller, err := Caller(ctx)
	if err != nil {
		return err
	}
	if !r.policy.AllowsSource(caller, source.AuthorID) {
		return permissionDenied(caller, source.AuthorID)
	}

	target := storage.MutationKey{AuthorID: caller, MutationID: targetMutationID}
	err = r.store.CopyOverrides(ctx, source, target)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrSourceNotFound):
		return apperrors.WithMetadata(
			apperrors.CodeSourceMutationNotFound,
			"source mutation not found",
			map[string]string{"AuthorID": source.AuthorID, "MutationID": source.MutationID},
		)
	case errors.Is(err, storage.ErrTargetNotFound):
		return apperrors.WithMetadata(
			apperrors.CodeTargetMutationNotFound,
			"target mutation not found",
			map[string]string{"AuthorID": target.AuthorID, "MutationID": target.MutationID},
		)
	default:
		return fmt.Errorf("copy overrides: %w", err)
	}
}

// GetMutation returns one mutation and whether it exists.
func (r *Registry) GetMutation(ctx context.Context, key storage.MutationKey) (storage.Mutation, bool, error) {
	mutation, err := r.store.GetMutation(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Mutation{}, false, nil
	}
	if err != nil {
		return storage.Mutation{}, false, fmt.Errorf("get mutation: %w", err)
	}
	return mutation, true, nil
}

// GetAllMutations returns every stored mutation matching the AIP-160
// filter expression. An empty filter returns everything.
func (r *Registry) GetAllMutations(ctx context.Context, filterExpr string) ([]storage.AuthoredMutation, error) {
	match, err := filter.ParseMutationFilter(filterExpr)
	if err != nil {
		return nil, apperrors.WithMetadata(
			apperrors.CodeFilterInvalid,
			err.Error(),
			map[string]string{"Reason": err.Error()},
		)
	}
	entries, err := r.store.ListMutations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	out := entries[:0]
	for _, entry := range entries {
		if match(entry) {
			out = append(out, entry)
		}
	}
	return out, nil
}

// GetMutationsByAuthor returns the mutations of one author, empty when the
// author has none.
func (r *Registry) GetMutationsByAuthor(ctx context.Context, authorID string) ([]storage.NamedMutation, error) {
	entries, err := r.store.ListMutationsByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("list author mutations: %w", err)
	}
	return entries, nil
}

// ListAuthors returns every author namespace, including empty ones.
func (r *Registry) ListAuthors(ctx context.Context) ([]string, error) {
	authors, err := r.store.ListAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return authors, nil
}
