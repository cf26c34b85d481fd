// Package storage defines persistence contracts for the mutation registry.
//
// Backends own their values: every method copies inputs on the way in and
// outputs on the way out, so callers never alias stored override slices.
// Each method is atomic; failed calls leave the store unchanged.
package storage

import (
	"context"
	"errors"
	"slices"
)

var (
	// ErrNotFound indicates a requested mutation is missing.
	ErrNotFound = errors.New("mutation not found")
	// ErrSourceNotFound indicates the copy source mutation is missing.
	ErrSourceNotFound = errors.New("source mutation not found")
	// ErrTargetNotFound indicates the copy target mutation is missing.
	ErrTargetNotFound = errors.New("target mutation not found")
)

// Override is one opaque from/to substitution rule.
type Override struct {
	FromSrc string `json:"from_src"`
	ToSrc   string `json:"to_src"`
}

// Mutation is a description plus an ordered override list.
type Mutation struct {
	Description string     `json:"description"`
	Overrides   []Override `json:"overrides"`
}

// Clone returns a deep copy. A nil override list becomes an empty one so
// every backend reports "no overrides" the same way.
func (m Mutation) Clone() Mutation {
	overrides := slices.Clone(m.Overrides)
	if overrides == nil {
		overrides = []Override{}
	}
	return Mutation{Description: m.Description, Overrides: overrides}
}

// MutationKey addresses one mutation inside an author namespace.
type MutationKey struct {
	AuthorID   string
	MutationID string
}

// MutationPatch carries optional replacements; nil fields are left alone.
type MutationPatch struct {
	Description *string
	Overrides   *[]Override
}

// Apply returns m with the present patch fields replaced.
func (p MutationPatch) Apply(m Mutation) Mutation {
	out := m.Clone()
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Overrides != nil {
		out.Overrides = Mutation{Overrides: *p.Overrides}.Clone().Overrides
	}
	return out
}

// AuthoredMutation is one flattened (author, id, mutation) entry.
type AuthoredMutation struct {
	AuthorID   string
	MutationID string
	Mutation   Mutation
}

// NamedMutation is one (id, mutation) entry inside an author namespace.
type NamedMutation struct {
	MutationID string
	Mutation   Mutation
}

// MutationStore persists the author → mutation id → mutation mapping.
type MutationStore interface {
	// PutMutation inserts or overwrites a mutation, creating the author
	// namespace on first write.
	PutMutation(ctx context.Context, key MutationKey, mutation Mutation) error
	// GetMutation returns ErrNotFound when the author or id is unknown.
	GetMutation(ctx context.Context, key MutationKey) (Mutation, error)
	// PatchMutation returns ErrNotFound, writing nothing, when the mutation
	// does not exist.
	PatchMutation(ctx context.Context, key MutationKey, patch MutationPatch) error
	// CopyOverrides replaces the target override list with the source's.
	// It returns ErrSourceNotFound before checking the target, then
	// ErrTargetNotFound.
	CopyOverrides(ctx context.Context, source, target MutationKey) error
	// ListMutations returns every stored mutation exactly once.
	ListMutations(ctx context.Context) ([]AuthoredMutation, error)
	// ListMutationsByAuthor returns an empty slice for unknown authors.
	ListMutationsByAuthor(ctx context.Context, authorID string) ([]NamedMutation, error)
	// ListAuthors returns every author namespace, including empty ones.
	ListAuthors(ctx context.Context) ([]string, error)
}
