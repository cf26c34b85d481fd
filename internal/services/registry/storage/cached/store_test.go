package cached

import (
	"context"
	"testing"
	"time"

	"github.com/louisbranch/mutation-registry/internal/services/registry/storage"
	"github.com/louisbranch/mutation-registry/internal/services/registry/storage/memory"
	"github.com/louisbranch/mutation-registry/internal/services/registry/storage/storagetest"
)

type countingStore struct {
	storage.MutationStore
	gets int
}

func (c *countingStore) GetMutation(ctx context.Context, key storage.MutationKey) (storage.Mutation, error) {
	c.gets++
	return c.MutationStore.GetMutation(ctx, key)
}

func TestStoreConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.MutationStore {
		return New(memory.New(), time.Minute, nil)
	})
}

func TestGetMutationReadsThrough(t *testing.T) {
	t.Parallel()

	inner := &countingStore{MutationStore: memory.New()}
	store := New(inner, time.Minute, nil)
	ctx := context.Background()
	key := storage.MutationKey{AuthorID: "alice.near", MutationID: "m"}
	if err := store.PutMutation(ctx, key, storage.Mutation{Description: "d"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, err := store.GetMutation(ctx, key)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Description != "d" {
			t.Fatalf("description = %q, want d", got.Description)
		}
	}
	if inner.gets != 1 {
		t.Fatalf("inner gets = %d, want 1", inner.gets)
	}
}

func TestWritesInvalidate(t *testing.T) {
	t.Parallel()

	inner := &countingStore{MutationStore: memory.New()}
	store := New(inner, time.Minute, nil)
	ctx := context.Background()
	source := storage.MutationKey{AuthorID: "bob.near", MutationID: "s"}
	target := storage.MutationKey{AuthorID: "alice.near", MutationID: "t"}
	if err := store.PutMutation(ctx, source, storage.Mutation{Overrides: []storage.Override{{FromSrc: "a", ToSrc: "b"}}}); err != nil {
		t.Fatalf("put source: %v", err)
	}
	if err := store.PutMutation(ctx, target, storage.Mutation{Description: "t"}); err != nil {
		t.Fatalf("put target: %v", err)
	}
	if _, err := store.GetMutation(ctx, target); err != nil {
		t.Fatalf("warm: %v", err)
	}

	if err := store.CopyOverrides(ctx, source, target); err != nil {
		t.Fatalf("copy: %v", err)
	}
	got, err := store.GetMutation(ctx, target)
	if err != nil {
		t.Fatalf("get after copy: %v", err)
	}
	if len(got.Overrides) != 1 {
		t.Fatalf("overrides = %v, want copied list", got.Overrides)
	}

	description := "patched"
	if err := store.PatchMutation(ctx, target, storage.MutationPatch{Description: &description}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	got, err = store.GetMutation(ctx, target)
	if err != nil {
		t.Fatalf("get after patch: %v", err)
	}
	if got.Description != "patched" {
		t.Fatalf("description = %q, want patched", got.Description)
	}
	if inner.gets != 3 {
		t.Fatalf("inner gets = %d, want 3", inner.gets)
	}
}

func TestFlush(t *testing.T) {
	t.Parallel()

	inner := &countingStore{MutationStore: memory.New()}
	store := New(inner, time.Minute, nil)
	ctx := context.Background()
	key := storage.MutationKey{AuthorID: "alice.near", MutationID: "m"}
	if err := store.PutMutation(ctx, key, storage.Mutation{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, _ = store.GetMutation(ctx, key)
	store.Flush()
	_, _ = store.GetMutation(ctx, key)
	if inner.gets != 2 {
		t.Fatalf("inner gets = %d, want 2", inner.gets)
	}
}
