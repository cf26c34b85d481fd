// Package memory provides an in-process mutation registry store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/louisbranch/mutation-registry/internal/services/registry/storage"
)

// Store keeps the registry in a map of author namespaces.
type Store struct {
	mu      sync.RWMutex
	authors map[string]map[string]storage.Mutation
}

// New returns an empty store.
func New() *Store {
	return &Store{authors: make(map[string]map[string]storage.Mutation)}
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.authors == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// ensureAuthor returns the namespace for authorID, creating it if needed.
// Callers hold the write lock.
func (s *Store) ensureAuthor(authorID string) map[string]storage.Mutation {
	namespace, ok := s.authors[authorID]
	if !ok {
		namespace = make(map[string]storage.Mutation)
		s.authors[authorID] = namespace
	}
	return namespace
}

func (s *Store) lookup(key storage.MutationKey) (storage.Mutation, bool) {
	mutation, ok := s.authors[key.AuthorID][key.MutationID]
	return mutation, ok
}

// PutMutation inserts or overwrites one mutation.
func (s *Store) PutMutation(ctx context.Context, key storage.MutationKey, mutation storage.Mutation) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureAuthor(key.AuthorID)[key.MutationID] = mutation.Clone()
	return nil
}

// GetMutation returns a copy of one mutation.
func (s *Store) GetMutation(ctx context.Context, key storage.MutationKey) (storage.Mutation, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Mutation{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	mutation, ok := s.lookup(key)
	if !ok {
		return storage.Mutation{}, storage.ErrNotFound
	}
	return mutation.Clone(), nil
}

// PatchMutation replaces the present patch fields of an existing mutation.
func (s *Store) PatchMutation(ctx context.Context, key storage.MutationKey, patch storage.MutationPatch) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.lookup(key)
	if !ok {
		return storage.ErrNotFound
	}
	s.authors[key.AuthorID][key.MutationID] = patch.Apply(current)
	return nil
}

// CopyOverrides replaces the target override list with the source's.
func (s *Store) CopyOverrides(ctx context.Context, source, target storage.MutationKey) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.lookup(source)
	if !ok {
		return storage.ErrSourceNotFound
	}
	dst, ok := s.lookup(target)
	if !ok {
		return storage.ErrTargetNotFound
	}
	dst.Overrides = src.Clone().Overrides
	s.authors[target.AuthorID][target.MutationID] = dst
	return nil
}

// ListMutations returns every mutation ordered by author then id.
func (s *Store) ListMutations(ctx context.Context) ([]storage.AuthoredMutation, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]storage.AuthoredMutation, 0)
	for _, authorID := range sortedKeys(s.authors) {
		namespace := s.authors[authorID]
		for _, mutationID := range sortedKeys(namespace) {
			entries = append(entries, storage.AuthoredMutation{
				AuthorID:   authorID,
				MutationID: mutationID,
				Mutation:   namespace[mutationID].Clone(),
			})
		}
	}
	return entries, nil
}

// ListMutationsByAuthor returns one author's mutations ordered by id.
func (s *Store) ListMutationsByAuthor(ctx context.Context, authorID string) ([]storage.NamedMutation, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	namespace := s.authors[authorID]
	entries := make([]storage.NamedMutation, 0, len(namespace))
	for _, mutationID := range sortedKeys(namespace) {
		entries = append(entries, storage.NamedMutation{
			MutationID: mutationID,
			Mutation:   namespace[mutationID].Clone(),
		})
	}
	return entries, nil
}

// ListAuthors returns every author namespace ordered by id.
func (s *Store) ListAuthors(ctx context.Context) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedKeys(s.authors), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var _ storage.MutationStore = (*Store)(nil)
