// Package sqlite provides a SQLite-backed mutation registry store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/mutation-registry/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/mutation-registry/internal/services/registry/storage"
	"github.com/louisbranch/mutation-registry/internal/services/registry/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists registry state in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite registry store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes writers; every write is also a transaction.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// withTx runs fn in one transaction, rolling back on any error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// PutMutation inserts or overwrites one mutation.
func (s *Store) PutMutation(ctx context.Context, key storage.MutationKey, mutation storage.Mutation) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	now := toMillis(s.now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureAuthor(ctx, tx, key.AuthorID, now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO mutations (author_id, mutation_id, description, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (author_id, mutation_id) DO UPDATE SET
			   description = excluded.description,
			   updated_at = excluded.updated_at`,
			key.AuthorID,
			key.MutationID,
			mutation.Description,
			now,
			now,
		); err != nil {
			return fmt.Errorf("put mutation: %w", err)
		}
		return replaceOverrides(ctx, tx, key, mutation.Overrides)
	})
}

// GetMutation returns one mutation by author and id.
func (s *Store) GetMutation(ctx context.Context, key storage.MutationKey) (storage.Mutation, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Mutation{}, err
	}
	return getMutation(ctx, s.sqlDB, key)
}

// PatchMutation replaces the present patch fields of an existing mutation.
func (s *Store) PatchMutation(ctx context.Context, key storage.MutationKey, patch storage.MutationPatch) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	now := toMillis(s.now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getMutation(ctx, tx, key)
		if err != nil {
			return err
		}
		next := patch.Apply(current)
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE mutations SET description = ?, updated_at = ?
			  WHERE author_id = ? AND mutation_id = ?`,
			next.Description,
			now,
			key.AuthorID,
			key.MutationID,
		); err != nil {
			return fmt.Errorf("patch mutation: %w", err)
		}
		if patch.Overrides == nil {
			return nil
		}
		return replaceOverrides(ctx, tx, key, next.Overrides)
	})
}

// CopyOverrides replaces the target override list with the source's.
func (s *Store) CopyOverrides(ctx context.Context, source, target storage.MutationKey) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	now := toMillis(s.now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		src, err := getMutation(ctx, tx, source)
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrSourceNotFound
		}
		if err != nil {
			return err
		}
		exists, err := mutationExists(ctx, tx, target)
		if err != nil {
			return err
		}
		if !exists {
			return storage.ErrTargetNotFound
		}
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE mutations SET updated_at = ? WHERE author_id = ? AND mutation_id = ?`,
			now,
			target.AuthorID,
			target.MutationID,
		); err != nil {
			return fmt.Errorf("touch target mutation: %w", err)
		}
		return replaceOverrides(ctx, tx, target, src.Overrides)
	})
}

// ListMutations returns every mutation ordered by author then id.
func (s *Store) ListMutations(ctx context.Context) ([]storage.AuthoredMutation, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT author_id, mutation_id, description
		   FROM mutations
		  ORDER BY author_id, mutation_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	defer rows.Close()

	entries := make([]storage.AuthoredMutation, 0)
	index := make(map[storage.MutationKey]int)
	for rows.Next() {
		var entry storage.AuthoredMutation
		if err := rows.Scan(&entry.AuthorID, &entry.MutationID, &entry.Mutation.Description); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		entry.Mutation.Overrides = []storage.Override{}
		index[storage.MutationKey{AuthorID: entry.AuthorID, MutationID: entry.MutationID}] = len(entries)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}

	err = scanOverrides(ctx, s.sqlDB,
		`SELECT author_id, mutation_id, from_src, to_src
		   FROM mutation_overrides
		  ORDER BY author_id, mutation_id, position`,
		nil,
		func(key storage.MutationKey, override storage.Override) {
			if i, ok := index[key]; ok {
				entries[i].Mutation.Overrides = append(entries[i].Mutation.Overrides, override)
			}
		},
	)
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
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT mutation_id, description
		   FROM mutations
		  WHERE author_id = ?
		  ORDER BY mutation_id`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list author mutations: %w", err)
	}
	defer rows.Close()

	entries := make([]storage.NamedMutation, 0)
	index := make(map[string]int)
	for rows.Next() {
		var entry storage.NamedMutation
		if err := rows.Scan(&entry.MutationID, &entry.Mutation.Description); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		entry.Mutation.Overrides = []storage.Override{}
		index[entry.MutationID] = len(entries)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}

	err = scanOverrides(ctx, s.sqlDB,
		`SELECT author_id, mutation_id, from_src, to_src
		   FROM mutation_overrides
		  WHERE author_id = ?
		  ORDER BY mutation_id, position`,
		[]any{authorID},
		func(key storage.MutationKey, override storage.Override) {
			if i, ok := index[key.MutationID]; ok {
				entries[i].Mutation.Overrides = append(entries[i].Mutation.Overrides, override)
			}
		},
	)
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
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT author_id FROM authors ORDER BY author_id`)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()

	authors := make([]string, 0)
	for rows.Next() {
		var authorID string
		if err := rows.Scan(&authorID); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, authorID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authors: %w", err)
	}
	return authors, nil
}

func ensureAuthor(ctx context.Context, tx *sql.Tx, authorID string, now int64) error {
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO authors (author_id, created_at) VALUES (?, ?)
		 ON CONFLICT (author_id) DO NOTHING`,
		authorID,
		now,
	); err != nil {
		return fmt.Errorf("ensure author: %w", err)
	}
	return nil
}

func replaceOverrides(ctx context.Context, tx *sql.Tx, key storage.MutationKey, overrides []storage.Override) error {
	if _, err := tx.ExecContext(
		ctx,
		`DELETE FROM mutation_overrides WHERE author_id = ? AND mutation_id = ?`,
		key.AuthorID,
		key.MutationID,
	); err != nil {
		return fmt.Errorf("clear overrides: %w", err)
	}
	for position, override := range overrides {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO mutation_overrides (author_id, mutation_id, position, from_src, to_src)
			 VALUES (?, ?, ?, ?, ?)`,
			key.AuthorID,
			key.MutationID,
			position,
			override.FromSrc,
			override.ToSrc,
		); err != nil {
			return fmt.Errorf("insert override: %w", err)
		}
	}
	return nil
}

func mutationExists(ctx context.Context, q queryer, key storage.MutationKey) (bool, error) {
	var found int
	err := q.QueryRowContext(
		ctx,
		`SELECT 1 FROM mutations WHERE author_id = ? AND mutation_id = ?`,
		key.AuthorID,
		key.MutationID,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check mutation: %w", err)
	}
	return true, nil
}

func getMutation(ctx context.Context, q queryer, key storage.MutationKey) (storage.Mutation, error) {
	var mutation storage.Mutation
	err := q.QueryRowContext(
		ctx,
		`SELECT description FROM mutations WHERE author_id = ? AND mutation_id = ?`,
		key.AuthorID,
		key.MutationID,
	).Scan(&mutation.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Mutation{}, storage.ErrNotFound
		}
		return storage.Mutation{}, fmt.Errorf("get mutation: %w", err)
	}

	mutation.Overrides = []storage.Override{}
	err = scanOverrides(ctx, q,
		`SELECT author_id, mutation_id, from_src, to_src
		   FROM mutation_overrides
		  WHERE author_id = ? AND mutation_id = ?
		  ORDER BY position`,
		[]any{key.AuthorID, key.MutationID},
		func(_ storage.MutationKey, override storage.Override) {
			mutation.Overrides = append(mutation.Overrides, override)
		},
	)
	if err != nil {
		return storage.Mutation{}, err
	}
	return mutation, nil
}

func scanOverrides(ctx context.Context, q queryer, query string, args []any, visit func(storage.MutationKey, storage.Override)) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query overrides: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key storage.MutationKey
		var override storage.Override
		if err := rows.Scan(&key.AuthorID, &key.MutationID, &override.FromSrc, &override.ToSrc); err != nil {
			return fmt.Errorf("scan override: %w", err)
		}
		visit(key, override)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate overrides: %w", err)
	}
	return nil
}

var _ storage.MutationStore = (*Store)(nil)
