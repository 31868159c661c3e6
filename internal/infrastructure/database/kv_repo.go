package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bimakw/lighter-tracker/internal/domain/repositories"
)

// Ensure KVRepo implements KVStore
var (
	_ repositories.KVStore   = (*KVRepo)(nil)
	_ repositories.KeyLister = (*KVRepo)(nil)
)

const createKVTable = `
	CREATE TABLE IF NOT EXISTS history_kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// KVRepo implements KVStore on a single PostgreSQL table
type KVRepo struct {
	db            *sqlx.DB
	maxValueBytes int
}

// NewKVRepo creates a new key-value repository
func NewKVRepo(db *sqlx.DB, maxValueBytes int) *KVRepo {
	return &KVRepo{db: db, maxValueBytes: maxValueBytes}
}

// EnsureSchema creates the history table if it does not exist
func (r *KVRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createKVTable); err != nil {
		return fmt.Errorf("failed to create history_kv table: %w", err)
	}
	return nil
}

// Get retrieves the value stored under key
func (r *KVRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	query := `SELECT value FROM history_kv WHERE key = $1`

	if err := r.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repositories.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get value: %w", err)
	}

	return value, nil
}

// Set creates or replaces the value stored under key
func (r *KVRepo) Set(ctx context.Context, key, value string) error {
	if r.maxValueBytes > 0 && len(value) > r.maxValueBytes {
		return fmt.Errorf("%w: %d bytes for %s", repositories.ErrQuotaExceeded, len(value), key)
	}

	query := `
		INSERT INTO history_kv (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to upsert value: %w", err)
	}

	return nil
}

// Delete removes key
func (r *KVRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM history_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete value: %w", err)
	}
	return nil
}

// Keys returns the stored keys starting with prefix, sorted
func (r *KVRepo) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	query := `SELECT key FROM history_kv WHERE left(key, length($1)) = $1 ORDER BY key`

	if err := r.db.SelectContext(ctx, &keys, query, prefix); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	return keys, nil
}
