package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"fitcoach/internal/logging"
)

// SQLiteKV is a durable KV adapter backed by a single-table SQLite database.
type SQLiteKV struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewSQLiteKV opens (or creates) the database at the given path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteKV(path string) (*SQLiteKV, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewSQLiteKV")
	defer timer.Stop()

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	// synchronous=NORMAL is safe under WAL and much faster than FULL.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	kv := &SQLiteKV{db: db, dbPath: path}
	if err := kv.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("Opened SQLite KV store at %s", path)
	return kv, nil
}

func (s *SQLiteKV) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Get retrieves the value for key.
func (s *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify("get", err)
	}
	return value, true, nil
}

// Set writes value under key, replacing any previous value.
func (s *SQLiteKV) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to write key %s: %v", key, err)
		return classify("set", err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is a no-op.
func (s *SQLiteKV) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return classify("remove", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteKV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// classify maps driver failures onto the shared error taxonomy. Unrecognized
// write failures default to STORAGE_FULL per the adapter contract; reads
// with no recognizable kind (context cancellation included) keep their
// cause under a neutral wrap.
func classify(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "disk is full") || strings.Contains(msg, "database or disk is full"):
		return NewError(KindStorageFull, op, err)
	case strings.Contains(msg, "readonly") || strings.Contains(msg, "permission denied") || strings.Contains(msg, "access is denied"):
		return NewError(KindPermissionDenied, op, err)
	case strings.Contains(msg, "malformed") || strings.Contains(msg, "corrupt"):
		return NewError(KindCorruptedData, op, err)
	case op == "get":
		return fmt.Errorf("storage %s: %w", op, err)
	default:
		return NewError(KindStorageFull, op, err)
	}
}
