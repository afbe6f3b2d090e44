package prefs

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS prefs (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteDictionary persists entries in a single SQLite table.
type SQLiteDictionary struct {
	// mu guards closed; statements hold the read lock so Close waits for them.
	mu        sync.RWMutex
	sqlDB     *sql.DB
	closed    bool
	listeners listeners
}

// OpenSQLite opens (or creates) a SQLite prefs database at path.
func OpenSQLite(path string) (*SQLiteDictionary, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("prefs sqlite path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create prefs table: %w", err)
	}
	return &SQLiteDictionary{sqlDB: sqlDB}, nil
}

func (d *SQLiteDictionary) GetString(key string) (string, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return "", false, ErrClosed
	}
	var value string
	err := d.sqlDB.QueryRow(`SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get pref %q: %w", key, err)
	}
	return value, true, nil
}

func (d *SQLiteDictionary) PutString(key, value string) error {
	err := d.exec(
		`INSERT INTO prefs (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("put pref %q: %w", key, err)
	}
	d.listeners.notify(key)
	return nil
}

func (d *SQLiteDictionary) Remove(key string) error {
	if err := d.exec(`DELETE FROM prefs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove pref %q: %w", key, err)
	}
	d.listeners.notify(key)
	return nil
}

// exec runs a write statement under the read lock; listeners are notified by
// the caller once the lock is released.
func (d *SQLiteDictionary) exec(query string, args ...any) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	_, err := d.sqlDB.Exec(query, args...)
	return err
}

func (d *SQLiteDictionary) Keys() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}
	rows, err := d.sqlDB.Query(`SELECT key FROM prefs ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list pref keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan pref key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (d *SQLiteDictionary) RegisterListener(fn Listener) func() {
	return d.listeners.register(fn)
}

// Close closes the SQLite handle.
func (d *SQLiteDictionary) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.sqlDB.Close()
}
