// Package badger provides a badger-backed mutation registry store.
package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dgraph-io/badger"
	jsoniter "github.com/json-iterator/go"

	"github.com/louisbranch/mutation-registry/internal/services/registry/storage"
)

var (
	mutationPref = []byte("m/")
	authorPref   = []byte("a/")
)

// Store persists registry state in a badger key-value directory.
//
// Keys:
//
//	a/<author>                         author namespace marker
//	m/<uvarint len(author)><author><id> jsoniter-encoded mutationRecord
//
// Writes are serialized by writeMu so concurrent Update transactions never
// conflict on the shared author marker.
type Store struct {
	db      *badger.DB
	writeMu sync.Mutex
}

// mutationRecord stores strings as bytes so values round trip exactly,
// including invalid UTF-8.
type mutationRecord struct {
	Description []byte           `json:"description"`
	Overrides   []overrideRecord `json:"overrides"`
}

type overrideRecord struct {
	FromSrc []byte `json:"from_src"`
	ToSrc   []byte `json:"to_src"`
}

func toRecord(mutation storage.Mutation) mutationRecord {
	record := mutationRecord{
		Description: []byte(mutation.Description),
		Overrides:   make([]overrideRecord, 0, len(mutation.Overrides)),
	}
	for _, o := range mutation.Overrides {
		record.Overrides = append(record.Overrides, overrideRecord{FromSrc: []byte(o.FromSrc), ToSrc: []byte(o.ToSrc)})
	}
	return record
}

func (r mutationRecord) mutation() storage.Mutation {
	mutation := storage.Mutation{
		Description: string(r.Description),
		Overrides:   make([]storage.Override, 0, len(r.Overrides)),
	}
	for _, o := range r.Overrides {
		mutation.Overrides = append(mutation.Overrides, storage.Override{FromSrc: string(o.FromSrc), ToSrc: string(o.ToSrc)})
	}
	return mutation
}

// Open opens (creating if needed) a badger store rooted at dir.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create badger dir: %w", err)
	}
	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the badger handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func authorPrefix(authorID string) []byte {
	buf := make([]byte, 0, len(mutationPref)+binary.MaxVarintLen64+len(authorID))
	buf = append(buf, mutationPref...)
	buf = binary.AppendUvarint(buf, uint64(len(authorID)))
	return append(buf, authorID...)
}

func mutationKey(key storage.MutationKey) []byte {
	return append(authorPrefix(key.AuthorID), key.MutationID...)
}

func authorKey(authorID string) []byte {
	return append(append([]byte{}, authorPref...), authorID...)
}

// splitMutationKey reverses mutationKey.
func splitMutationKey(raw []byte) (storage.MutationKey, error) {
	rest := raw[len(mutationPref):]
	size, n := binary.Uvarint(rest)
	if n <= 0 || uint64(len(rest)-n) < size {
		return storage.MutationKey{}, fmt.Errorf("malformed mutation key %q", raw)
	}
	rest = rest[n:]
	return storage.MutationKey{
		AuthorID:   string(rest[:size]),
		MutationID: string(rest[size:]),
	}, nil
}

func decodeMutation(item *badger.Item) (storage.Mutation, error) {
	data, err := item.Value()
	if err != nil {
		return storage.Mutation{}, fmt.Errorf("read mutation value: %w", err)
	}
	var record mutationRecord
	if err := jsoniter.Unmarshal(data, &record); err != nil {
		return storage.Mutation{}, fmt.Errorf("decode mutation: %w", err)
	}
	return record.mutation(), nil
}

func getMutation(txn *badger.Txn, key storage.MutationKey) (storage.Mutation, error) {
	item, err := txn.Get(mutationKey(key))
	if err == badger.ErrKeyNotFound {
		return storage.Mutation{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Mutation{}, fmt.Errorf("get mutation: %w", err)
	}
	return decodeMutation(item)
}

func setMutation(txn *badger.Txn, key storage.MutationKey, mutation storage.Mutation) error {
	data, err := jsoniter.Marshal(toRecord(mutation))
	if err != nil {
		return fmt.Errorf("encode mutation: %w", err)
	}
	if err := txn.Set(mutationKey(key), data); err != nil {
		return fmt.Errorf("set mutation: %w", err)
	}
	return nil
}

func ensureAuthor(txn *badger.Txn, authorID string) error {
	key := authorKey(authorID)
	_, err := txn.Get(key)
	if err == nil {
		return nil
	}
	if err != badger.ErrKeyNotFound {
		return fmt.Errorf("get author: %w", err)
	}
	if err := txn.Set(key, []byte{}); err != nil {
		return fmt.Errorf("set author: %w", err)
	}
	return nil
}

// update runs fn in a read-write transaction, one writer at a time.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.db.Update(fn)
}

// PutMutation inserts or overwrites one mutation.
func (s *Store) PutMutation(ctx context.Context, key storage.MutationKey, mutation storage.Mutation) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		if err := ensureAuthor(txn, key.AuthorID); err != nil {
			return err
		}
		return setMutation(txn, key, mutation)
	})
}

// GetMutation returns one mutation by author and id.
func (s *Store) GetMutation(ctx context.Context, key storage.MutationKey) (storage.Mutation, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Mutation{}, err
	}
	var mutation storage.Mutation
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		mutation, err = getMutation(txn, key)
		return err
	})
	if err != nil {
		return storage.Mutation{}, err
	}
	return mutation, nil
}

// PatchMutation replaces the present patch fields of an existing mutation.
func (s *Store) PatchMutation(ctx context.Context, key storage.MutationKey, patch storage.MutationPatch) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		current, err := getMutation(txn, key)
		if err != nil {
			return err
		}
		return setMutation(txn, key, patch.Apply(current))
	})
}

// CopyOverrides replaces the target override list with the source's.
func (s *Store) CopyOverrides(ctx context.Context, source, target storage.MutationKey) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		src, err := getMutation(txn, source)
		if err == storage.ErrNotFound {
			return storage.ErrSourceNotFound
		}
		if err != nil {
			return err
		}
		dst, err := getMutation(txn, target)
		if err == storage.ErrNotFound {
			return storage.ErrTargetNotFound
		}
		if err != nil {
			return err
		}
		dst.Overrides = src.Overrides
		return setMutation(txn, target, dst)
	})
}

// ListMutations returns every mutation in key order.
func (s *Store) ListMutations(ctx context.Context) ([]storage.AuthoredMutation, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	entries := make([]storage.AuthoredMutation, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, mutationPref, func(key storage.MutationKey, mutation storage.Mutation) {
			entries = append(entries, storage.AuthoredMutation{
				AuthorID:   key.AuthorID,
				MutationID: key.MutationID,
				Mutation:   mutation,
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListMutationsByAuthor returns one author's mutations ordered by id.
func (s *Store) ListMutationsByAuthor(ctx context.Context, authorID string) ([]storage.NamedMutation, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	entries := make([]storage.NamedMutation, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, authorPrefix(authorID), func(key storage.MutationKey, mutation storage.Mutation) {
			entries = append(entries, storage.NamedMutation{MutationID: key.MutationID, Mutation: mutation})
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListAuthors returns every author namespace ordered by id.
func (s *Store) ListAuthors(ctx context.Context) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	authors := make([]string, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(authorPref); it.ValidForPrefix(authorPref); it.Next() {
			authors = append(authors, string(it.Item().Key()[len(authorPref):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return authors, nil
}

func scanPrefix(txn *badger.Txn, pref []byte, visit func(storage.MutationKey, storage.Mutation)) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(pref); it.ValidForPrefix(pref); it.Next() {
		item := it.Item()
		key, err := splitMutationKey(item.Key())
		if err != nil {
			return err
		}
		mutation, err := decodeMutation(item)
		if err != nil {
			return err
		}
		visit(key, mutation)
	}
	return nil
}

var _ storage.MutationStore = (*Store)(nil)
