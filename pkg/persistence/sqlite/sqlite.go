// Package sqlite persists settings in a SQLite database, one row per message
// key and application.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-devicecfg/pkg/persistence"
)

const migration = `CREATE TABLE IF NOT EXISTS settings (
	app_id      TEXT NOT NULL,
	message_key TEXT NOT NULL,
	value       TEXT NOT NULL,
	updated_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (app_id, message_key)
)`

// Store implements persistence.Store on a *sql.DB. Close waits for
// in-flight Load and Save calls.
type Store struct {
	mu    sync.RWMutex
	db    *sql.DB
	appID string
	owned bool
}

// Open opens (or creates) the database at path and migrates it. ":memory:"
// keeps everything in process.
func Open(path, appID string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	if path == ":memory:" {
		// Every connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	s, err := New(db, appID)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an existing database. The caller keeps ownership of db.
func New(db *sql.DB, appID string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite: db is required")
	}
	if appID == "" {
		return nil, fmt.Errorf("sqlite: app id is required")
	}
	if _, err := db.Exec(migration); err != nil {
		return nil, fmt.Errorf("sqlite: migration: %w", err)
	}
	return &Store{db: db, appID: appID}, nil
}

func (s *Store) Load(ctx context.Context) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, persistence.ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_key, value FROM settings WHERE app_id = ?`, s.appID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying settings: %w", err)
	}
	defer rows.Close()

	values := map[string]any{}
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("sqlite: scanning setting: %w", err)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			// Unreadable rows are left to the default resolver.
			continue
		}
		values[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating settings: %w", err)
	}
	return values, nil
}

// Save replaces the stored values of the application in one transaction.
func (s *Store) Save(ctx context.Context, values map[string]any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return persistence.ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: starting transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE app_id = ?`, s.appID); err != nil {
		return fmt.Errorf("sqlite: clearing settings: %w", err)
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw, err := json.Marshal(values[key])
		if err != nil {
			return fmt.Errorf("sqlite: encoding %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO settings (app_id, message_key, value) VALUES (?, ?, ?)`,
			s.appID, key, string(raw)); err != nil {
			return fmt.Errorf("sqlite: saving %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing settings: %w", err)
	}
	committed = true
	return nil
}

// Close releases the database when the store opened it.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db := s.db
	s.db = nil
	if db == nil || !s.owned {
		return nil
	}
	return db.Close()
}

var _ persistence.Store = (*Store)(nil)
