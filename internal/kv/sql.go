package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
)

const (
	sqlGet    = `SELECT value FROM kv_entries WHERE key = ?`
	sqlUpsert = `INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	sqlDelete = `DELETE FROM kv_entries WHERE key = ?`
	sqlKeys   = `SELECT key FROM kv_entries WHERE substr(key, 1, ?) = ?`
)

// SQLBackend stores keys as rows of the kv_entries table. The same
// queries run on postgres and sqlite; placeholders are rebound per driver.
type SQLBackend struct {
	db *sqlx.DB
}

func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

func (s *SQLBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.db.Rebind(sqlGet), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sql get %s: %w", key, err)
	}
	return []byte(value), true, nil
}

func (s *SQLBackend) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(sqlUpsert), key, string(value), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("sql set %s: %w", key, err)
	}
	return nil
}

func (s *SQLBackend) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(sqlDelete), key); err != nil {
		return fmt.Errorf("sql delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	err := s.db.SelectContext(ctx, &keys, s.db.Rebind(sqlKeys), utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("sql keys %s: %w", prefix, err)
	}
	return keys, nil
}

func (s *SQLBackend) Name() string { return s.db.DriverName() }

func (s *SQLBackend) Close() error {
	return s.db.Close()
}
