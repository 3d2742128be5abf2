package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"card-assistant-backend/internal/domain"
)

type localStore struct {
	db *sql.DB
}

// NewLocalStore returns the device-scoped key/value cache backed by the local_cache table.
func NewLocalStore(db *sql.DB) domain.LocalStore {
	return &localStore{db: db}
}

// Get returns (nil, nil) when the key is absent.
func (s *localStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_cache WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get local_cache[%s]: %w", key, err)
	}
	return value, nil
}

func (s *localStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_cache (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set local_cache[%s]: %w", key, err)
	}
	return nil
}

func (s *localStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM local_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete local_cache[%s]: %w", key, err)
	}
	return nil
}
