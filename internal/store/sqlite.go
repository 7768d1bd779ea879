package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ovirt/node-setup/internal/logging"
)

// SQLiteStore keeps values in a SQLite database.
type SQLiteStore struct {
	DB *sql.DB
}

// OpenSQLite opens the database at dsn and creates the settings table.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, newError("open", "sqlite", nil, err)
	}
	// A single connection keeps in-memory databases alive and serialises
	// writers.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, newError("open", "sqlite", nil, err)
	}
	return &SQLiteStore{DB: db}, nil
}

// migrate creates the settings table if it does not exist.
func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}
	return nil
}

// Name implements Store.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Retrieve implements Store.
func (s *SQLiteStore) Retrieve(keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.DB.Query("SELECT key, value FROM settings WHERE key IN ("+placeholders+")", args...)
	if err != nil {
		return nil, newError("retrieve", s.Name(), keys, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Warn(fmt.Sprintf("failed to close rows: %v", err))
		}
	}()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, newError("retrieve", s.Name(), keys, err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, newError("retrieve", s.Name(), keys, err)
	}
	return out, nil
}

// Write implements Store. All values are written in one SQL transaction.
func (s *SQLiteStore) Write(values map[string]string) error {
	keys := keysOf(values)

	tx, err := s.DB.BeginTx(context.Background(), nil)
	if err != nil {
		return newError("write", s.Name(), keys, err)
	}

	now := time.Now().UTC()
	for _, k := range keys {
		_, err := tx.Exec(`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			k, values[k], now)
		if err != nil {
			_ = tx.Rollback()
			return newError("write", s.Name(), keys, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return newError("write", s.Name(), keys, err)
	}

	logging.LogStoreWrite(s.Name(), values)
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}
