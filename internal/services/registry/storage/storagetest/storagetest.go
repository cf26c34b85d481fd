// Package storagetest runs the shared MutationStore contract against a backend.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/louisbranch/mutation-registry/internal/services/registry/storage"
)

// Factory opens a fresh, empty store for one subtest.
type Factory func(t *testing.T) storage.MutationStore

// Run exercises every MutationStore behavior against stores from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, store storage.MutationStore)
	}{
		{"PutGetRoundTrip", testPutGetRoundTrip},
		{"PutOverwrites", testPutOverwrites},
		{"GetMissing", testGetMissing},
		{"NamespacesAreIndependent", testNamespacesAreIndependent},
		{"PatchPartial", testPatchPartial},
		{"PatchClearsOverrides", testPatchClearsOverrides},
		{"PatchMissingWritesNothing", testPatchMissingWritesNothing},
		{"CopyOverrides", testCopyOverrides},
		{"CopyOverridesOntoItself", testCopyOverridesOntoItself},
		{"CopyOverridesSourceMissing", testCopyOverridesSourceMissing},
		{"CopyOverridesTargetMissing", testCopyOverridesTargetMissing},
		{"ListMutations", testListMutations},
		{"ListMutationsByAuthor", testListMutationsByAuthor},
		{"ListAuthorsKeepsNamespaces", testListAuthorsKeepsNamespaces},
		{"ValuesAreCopied", testValuesAreCopied},
		{"ValuesAreByteExact", testValuesAreByteExact},
		{"EmptyIdentifiers", testEmptyIdentifiers},
		{"ConcurrentWrites", testConcurrentWrites},
		{"CanceledContext", testCanceledContext},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func key(author, id string) storage.MutationKey {
	return storage.MutationKey{AuthorID: author, MutationID: id}
}

func sample(description string, pairs ...string) storage.Mutation {
	m := storage.Mutation{Description: description, Overrides: []storage.Override{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Overrides = append(m.Overrides, storage.Override{FromSrc: pairs[i], ToSrc: pairs[i+1]})
	}
	return m
}

func mustPut(t *testing.T, store storage.MutationStore, k storage.MutationKey, m storage.Mutation) {
	t.Helper()
	if err := store.PutMutation(context.Background(), k, m); err != nil {
		t.Fatalf("put %v: %v", k, err)
	}
}

func mustGet(t *testing.T, store storage.MutationStore, k storage.MutationKey) storage.Mutation {
	t.Helper()
	got, err := store.GetMutation(context.Background(), k)
	if err != nil {
		t.Fatalf("get %v: %v", k, err)
	}
	return got
}

func assertMutation(t *testing.T, got, want storage.Mutation) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("mutation = %+v, want %+v", got, want)
	}
}

func testPutGetRoundTrip(t *testing.T, store storage.MutationStore) {
	want := sample("dark header", "a.near/widget/Header", "b.near/widget/Header", "x", "y")
	mustPut(t, store, key("alice.near", "dark"), want)
	assertMutation(t, mustGet(t, store, key("alice.near", "dark")), want)

	mustPut(t, store, key("alice.near", "empty"), storage.Mutation{Description: "no overrides"})
	assertMutation(t, mustGet(t, store, key("alice.near", "empty")), sample("no overrides"))
}

func testPutOverwrites(t *testing.T, store storage.MutationStore) {
	mustPut(t, store, key("alice.near", "m"), sample("first", "a", "b", "c", "d"))
	mustPut(t, store, key("alice.near", "m"), sample("second", "e", "f"))
	assertMutation(t, mustGet(t, store, key("alice.near", "m")), sample("second", "e", "f"))
}

func testGetMissing(t *testing.T, store storage.MutationStore) {
	_, err := store.GetMutation(context.Background(), key("nobody", "m"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown author err = %v, want ErrNotFound", err)
	}
	mustPut(t, store, key("alice.near", "m"), sample("d"))
	_, err = store.GetMutation(context.Background(), key("alice.near", "other"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown id err = %v, want ErrNotFound", err)
	}
}

func testNamespacesAreIndependent(t *testing.T, store storage.MutationStore) {
	mustPut(t, store, key("alice.near", "shared"), sample("alice", "a", "1"))
	mustPut(t, store, key("bob.near", "shared"), sample("bob", "b", "2"))
	// Keys that would collide under naive concatenation.
	mustPut(t, store, key("ab", "c"), sample("ab/c"))
	mustPut(t, store, key("a", "bc"), sample("a/bc"))

	assertMutation(t, mustGet(t, store, key("alice.near", "shared")), sample("alice", "a", "1"))
	assertMutation(t, mustGet(t, store, key("bob.near", "shared")), sample("bob", "b", "2"))
	assertMutation(t, mustGet(t, store, key("ab", "c")), sample("ab/c"))
	assertMutation(t, mustGet(t, store, key("a", "bc")), sample("a/bc"))
}

func testPatchPartial(t *testing.T, store storage.MutationStore) {
	k := key("alice.near", "m")
	mustPut(t, store, k, sample("d", "a", "b"))

	description := "d2"
	if err := store.PatchMutation(context.Background(), k, storage.MutationPatch{Description: &description}); err != nil {
		t.Fatalf("patch description: %v", err)
	}
	assertMutation(t, mustGet(t, store, k), sample("d2", "a", "b"))

	overrides := []storage.Override{{FromSrc: "c", ToSrc: "d"}}
	if err := store.PatchMutation(context.Background(), k, storage.MutationPatch{Overrides: &overrides}); err != nil {
		t.Fatalf("patch overrides: %v", err)
	}
	assertMutation(t, mustGet(t, store, k), sample("d2", "c", "d"))

	if err := store.PatchMutation(context.Background(), k, storage.MutationPatch{}); err != nil {
		t.Fatalf("empty patch: %v", err)
	}
	assertMutation(t, mustGet(t, store, k), sample("d2", "c", "d"))
}

func testPatchClearsOverrides(t *testing.T, store storage.MutationStore) {
	k := key("alice.near", "m")
	mustPut(t, store, k, sample("d", "a", "b"))

	empty := []storage.Override{}
	if err := store.PatchMutation(context.Background(), k, storage.MutationPatch{Overrides: &empty}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	assertMutation(t, mustGet(t, store, k), sample("d"))
}

func testPatchMissingWritesNothing(t *testing.T, store storage.MutationStore) {
	description := "ghost"
	err := store.PatchMutation(context.Background(), key("alice.near", "missing"), storage.MutationPatch{Description: &description})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("patch missing err = %v, want ErrNotFound", err)
	}
	if _, err := store.GetMutation(context.Background(), key("alice.near", "missing")); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get after patch err = %v, want ErrNotFound", err)
	}
	authors, err := store.ListAuthors(context.Background())
	if err != nil {
		t.Fatalf("list authors: %v", err)
	}
	if len(authors) != 0 {
		t.Fatalf("authors = %v, want none", authors)
	}
}

func testCopyOverrides(t *testing.T, store storage.MutationStore) {
	mustPut(t, store, key("source.near", "s"), sample("source", "a", "b", "c", "d"))
	mustPut(t, store, key("target.near", "t"), sample("target", "x", "y"))

	if err := store.CopyOverrides(context.Background(), key("source.near", "s"), key("target.near", "t")); err != nil {
		t.Fatalf("copy overrides: %v", err)
	}
	assertMutation(t, mustGet(t, store, key("target.near", "t")), sample("target", "a", "b", "c", "d"))
	assertMutation(t, mustGet(t, store, key("source.near", "s")), sample("source", "a", "b", "c", "d"))
}

func testCopyOverridesOntoItself(t *testing.T, store storage.MutationStore) {
	k := key("alice.near", "m")
	mustPut(t, store, k, sample("d", "a", "b"))
	if err := store.CopyOverrides(context.Background(), k, k); err != nil {
		t.Fatalf("self copy: %v", err)
	}
	assertMutation(t, mustGet(t, store, k), sample("d", "a", "b"))
}

func testCopyOverridesSourceMissing(t *testing.T, store storage.MutationStore) {
	mustPut(t, store, key("target.near", "t"), sample("target", "x", "y"))

	// Target also missing: the source check wins.
	err := store.CopyOverrides(context.Background(), key("source.near", "s"), key("target.near", "nope"))
	if !errors.Is(err, storage.ErrSourceNotFound) {
		t.Fatalf("err = %v, want ErrSourceNotFound", err)
	}
	err = store.CopyOverrides(context.Background(), key("source.near", "s"), key("target.near", "t"))
	if !errors.Is(err, storage.ErrSourceNotFound) {
		t.Fatalf("err = %v, want ErrSourceNotFound", err)
	}
	assertMutation(t, mustGet(t, store, key("target.near", "t")), sample("target", "x", "y"))
}

func testCopyOverridesTargetMissing(t *testing.T, store storage.MutationStore) {
	mustPut(t, store, key("source.near", "s"), sample("source", "a", "b"))

	err := store.CopyOverrides(context.Background(), key("source.near", "s"), key("target.near", "t"))
	if !errors.Is(err, storage.ErrTargetNotFound) {
		t.Fatalf("err = %v, want ErrTargetNotFound", err)
	}
	if _, err := store.GetMutation(context.Background(), key("target.near", "t")); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("target should not be created, err = %v", err)
	}
}

func testListMutations(t *testing.T, store storage.MutationStore) {
	entries, err := store.ListMutations(context.Background())
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(entries))
	}

	want := map[storage.MutationKey]storage.Mutation{}
	for a := 0; a < 3; a++ {
		author := fmt.Sprintf("author-%d.near", a)
		for m := 0; m <= a; m++ {
			k := key(author, fmt.Sprintf("m-%d", m))
			value := sample(fmt.Sprintf("%s/%d", author, m), "from", fmt.Sprintf("to-%d", m))
			mustPut(t, store, k, value)
			want[k] = value
		}
	}

	entries, err = store.ListMutations(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != len(want) {
		t.Fatalf("entries = %d, want %d", len(entries), len(want))
	}
	seen := map[storage.MutationKey]bool{}
	for _, entry := range entries {
		k := key(entry.AuthorID, entry.MutationID)
		if seen[k] {
			t.Fatalf("duplicate entry %v", k)
		}
		seen[k] = true
		expected, ok := want[k]
		if !ok {
			t.Fatalf("unexpected entry %v", k)
		}
		assertMutation(t, entry.Mutation, expected)
	}
}

func testListMutationsByAuthor(t *testing.T, store storage.MutationStore) {
	entries, err := store.ListMutationsByAuthor(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("list unknown author: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("entries = %#v, want empty non-nil slice", entries)
	}

	mustPut(t, store, key("alice.near", "one"), sample("1", "a", "b"))
	mustPut(t, store, key("alice.near", "two"), sample("2"))
	mustPut(t, store, key("alice.nearby", "three"), sample("3"))
	mustPut(t, store, key("bob.near", "one"), sample("bob"))

	entries, err = store.ListMutationsByAuthor(context.Background(), "alice.near")
	if err != nil {
		t.Fatalf("list by author: %v", err)
	}
	got := map[string]storage.Mutation{}
	for _, entry := range entries {
		got[entry.MutationID] = entry.Mutation
	}
	if len(entries) != 2 || len(got) != 2 {
		t.Fatalf("entries = %+v, want one and two", entries)
	}
	assertMutation(t, got["one"], sample("1", "a", "b"))
	assertMutation(t, got["two"], sample("2"))
}

func testListAuthorsKeepsNamespaces(t *testing.T, store storage.MutationStore) {
	mustPut(t, store, key("bob.near", "m"), sample("b"))
	mustPut(t, store, key("alice.near", "m"), sample("a"))
	mustPut(t, store, key("alice.near", "n"), sample("a2"))

	authors, err := store.ListAuthors(context.Background())
	if err != nil {
		t.Fatalf("list authors: %v", err)
	}
	got := map[string]int{}
	for _, author := range authors {
		got[author]++
	}
	if len(authors) != 2 || got["alice.near"] != 1 || got["bob.near"] != 1 {
		t.Fatalf("authors = %v, want alice.near and bob.near once each", authors)
	}
}

func testValuesAreCopied(t *testing.T, store storage.MutationStore) {
	k := key("alice.near", "m")
	input := sample("d", "a", "b")
	mustPut(t, store, k, input)
	input.Overrides[0].ToSrc = "mutated-after-put"

	first := mustGet(t, store, k)
	first.Overrides[0].FromSrc = "mutated-after-get"

	assertMutation(t, mustGet(t, store, k), sample("d", "a", "b"))
}

func testCanceledContext(t *testing.T, store storage.MutationStore) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.PutMutation(ctx, key("alice.near", "m"), sample("d")); !errors.Is(err, context.Canceled) {
		t.Fatalf("put err = %v, want context.Canceled", err)
	}
	if _, err := store.GetMutation(context.Background(), key("alice.near", "m")); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("canceled put should write nothing, err = %v", err)
	}
	if _, err := store.ListMutations(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("list err = %v, want context.Canceled", err)
	}
}

func testValuesAreByteExact(t *testing.T, store storage.MutationStore) {
	want := sample("caf\xe9 \xff end", "\xc3\x28", "ok\x80", "日本", "\xed\xa0\x80")
	mustPut(t, store, key("alice.near", "bytes"), want)
	assertMutation(t, mustGet(t, store, key("alice.near", "bytes")), want)

	entries, err := store.ListMutationsByAuthor(context.Background(), "alice.near")
	if err != nil {
		t.Fatalf("list by author: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	assertMutation(t, entries[0].Mutation, want)
}

func testEmptyIdentifiers(t *testing.T, store storage.MutationStore) {
	mustPut(t, store, key("alice.near", ""), sample("blank id", "a", "b"))
	mustPut(t, store, key("alice.near", " "), sample("space id"))
	assertMutation(t, mustGet(t, store, key("alice.near", "")), sample("blank id", "a", "b"))
	assertMutation(t, mustGet(t, store, key("alice.near", " ")), sample("space id"))

	if _, err := store.GetMutation(context.Background(), key("", "")); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("blank author err = %v, want ErrNotFound", err)
	}
	entries, err := store.ListMutationsByAuthor(context.Background(), "")
	if err != nil {
		t.Fatalf("list blank author: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("blank author entries = %+v, want none", entries)
	}
}

func testConcurrentWrites(t *testing.T, store storage.MutationStore) {
	const writers = 32
	ctx := context.Background()
	mustPut(t, store, key("alice.near", "source"), sample("source", "from", "to"))

	errs := make(chan error, writers*3)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := key("alice.near", fmt.Sprintf("m-%02d", i))
			if err := store.PutMutation(ctx, k, sample(k.MutationID)); err != nil {
				errs <- fmt.Errorf("put %v: %w", k, err)
				return
			}
			description := "patched"
			if err := store.PatchMutation(ctx, k, storage.MutationPatch{Description: &description}); err != nil {
				errs <- fmt.Errorf("patch %v: %w", k, err)
				return
			}
			if err := store.CopyOverrides(ctx, key("alice.near", "source"), k); err != nil {
				errs <- fmt.Errorf("copy onto %v: %w", k, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent write: %v", err)
	}

	entries, err := store.ListMutationsByAuthor(ctx, "alice.near")
	if err != nil {
		t.Fatalf("list by author: %v", err)
	}
	if len(entries) != writers+1 {
		t.Fatalf("entries = %d, want %d", len(entries), writers+1)
	}
	for _, entry := range entries {
		if entry.MutationID == "source" {
			continue
		}
		assertMutation(t, entry.Mutation, sample("patched", "from", "to"))
	}
}
