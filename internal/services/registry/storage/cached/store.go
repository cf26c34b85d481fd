// Package cached decorates a mutation store with a read-through cache for
// single-mutation lookups.
package cached

import (
	"context"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/louisbranch/mutation-registry/internal/services/registry/storage"
)

// DefaultCleanupInterval is how often expired entries are purged.
const DefaultCleanupInterval = 10 * time.Minute

// Store caches GetMutation results of the wrapped store. Every write drops
// the entries it may have changed.
type Store struct {
	storage.MutationStore

	// mu keeps a miss-then-fill from racing with a write-then-invalidate.
	mu     sync.RWMutex
	cache  *gocache.Cache
	logger *zap.Logger
}

// New wraps inner with a cache whose entries live for ttl.
func New(inner storage.MutationStore, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		MutationStore: inner,
		cache:         gocache.New(ttl, DefaultCleanupInterval),
		logger:        logger.Named("cache"),
	}
}

func cacheKey(key storage.MutationKey) string {
	return strconv.Itoa(len(key.AuthorID)) + ":" + key.AuthorID + key.MutationID
}

// GetMutation serves from the cache when possible.
func (s *Store) GetMutation(ctx context.Context, key storage.MutationKey) (storage.Mutation, error) {
	ck := cacheKey(key)
	if value, found := s.cache.Get(ck); found {
		if mutation, ok := value.(storage.Mutation); ok {
			s.logger.Debug("cache hit", zap.String("author_id", key.AuthorID), zap.String("mutation_id", key.MutationID))
			return mutation.Clone(), nil
		}
		s.logger.Error("wrong type in cache", zap.String("key", ck))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	mutation, err := s.MutationStore.GetMutation(ctx, key)
	if err != nil {
		return storage.Mutation{}, err
	}
	s.cache.SetDefault(ck, mutation.Clone())
	return mutation, nil
}

// PutMutation writes through and invalidates the key.
func (s *Store) PutMutation(ctx context.Context, key storage.MutationKey, mutation storage.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer s.cache.Delete(cacheKey(key))
	return s.MutationStore.PutMutation(ctx, key, mutation)
}

// PatchMutation writes through and invalidates the key.
func (s *Store) PatchMutation(ctx context.Context, key storage.MutationKey, patch storage.MutationPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer s.cache.Delete(cacheKey(key))
	return s.MutationStore.PatchMutation(ctx, key, patch)
}

// CopyOverrides writes through and invalidates the target.
func (s *Store) CopyOverrides(ctx context.Context, source, target storage.MutationKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer s.cache.Delete(cacheKey(target))
	return s.MutationStore.CopyOverrides(ctx, source, target)
}

// Flush drops every cached entry.
func (s *Store) Flush() {
	s.cache.Flush()
}

var _ storage.MutationStore = (*Store)(nil)
