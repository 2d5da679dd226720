package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opexdevelop/mediacache/internal/models"
)

// CacheStore persists the mapping from cache keys to delivery handles.
//
// Get returns (nil, nil) on a miss; an error always means the backend
// itself failed. Put overwrites any existing entry for the key.
type CacheStore interface {
	Get(ctx context.Context, key string) (*models.CacheEntry, error)
	Put(ctx context.Context, entry *models.CacheEntry) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Lister is implemented by stores that can enumerate their entries.
// The in-memory and SQLite stores support it; listing a shared Redis
// keyspace is deliberately unsupported.
type Lister interface {
	List(ctx context.Context) ([]models.CacheEntry, error)
}

// SQLiteStore implements [CacheStore] on the cache_entries table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLiteStore with the given database connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves a cache entry by key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	query := `
		SELECT key, handle, inserted_at
		FROM cache_entries
		WHERE key = ?
	`

	var entry models.CacheEntry
	err := s.db.QueryRowContext(ctx, query, key).Scan(&entry.Key, &entry.Handle, &entry.InsertedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entry: %w", err)
	}

	return &entry, nil
}

// Put inserts or replaces the entry for its key.
func (s *SQLiteStore) Put(ctx context.Context, entry *models.CacheEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO cache_entries (key, handle, inserted_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET handle = excluded.handle, inserted_at = excluded.inserted_at
	`

	if _, err := s.db.ExecContext(ctx, query, entry.Key, entry.Handle, entry.InsertedAt); err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}

	return nil
}

// Delete removes the entry for key. Deleting an absent key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// List returns all entries ordered by insertion time, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]models.CacheEntry, error) {
	query := `
		SELECT key, handle, inserted_at
		FROM cache_entries
		ORDER BY inserted_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		var entry models.CacheEntry
		if err := rows.Scan(&entry.Key, &entry.Handle, &entry.InsertedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cache entries: %w", err)
	}

	return entries, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
