package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mwantia/docfs/data"
	"github.com/mwantia/docfs/objectstore"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteBackend persists namespaced values in a single SQLite table.
// The dbPath can be ":memory:" for an in-memory database or a file path.
type SQLiteBackend struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// NewSQLiteBackend creates a new SQLite-backed object store backend.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Every pooled connection to ":memory:" would open its own database
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	backend := &SQLiteBackend{
		db: db,
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return backend, nil
}

// initSchema creates the database schema.
func (sb *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS docfs_objects (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (namespace, key)
	);
	`

	_, err := sb.db.Exec(schema)
	return err
}

// Name returns the identifier name defined for this backend
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open is part of the lifecycle behaviour and gets called before first use.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if sb.closed {
		return data.ErrClosed
	}

	// Verify database connection
	return sb.db.PingContext(ctx)
}

// Close is part of the lifecycle behaviour and releases all resources.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.closed {
		return nil
	}

	sb.closed = true
	return sb.db.Close()
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *SQLiteBackend) GetCapabilities() *objectstore.BackendCapabilities {
	return &objectstore.BackendCapabilities{
		Capabilities: []objectstore.BackendCapability{
			objectstore.CapabilityPersistent,
			objectstore.CapabilityBatch,
		},
	}
}

func (sb *SQLiteBackend) GetObject(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	var value []byte
	err := sb.db.QueryRowContext(ctx,
		"SELECT value FROM docfs_objects WHERE namespace = ? AND key = ?",
		namespace, key).Scan(&value)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query object '%s': %w", key, err)
	}

	return value, true, nil
}

func (sb *SQLiteBackend) GetObjects(ctx context.Context, namespace string, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	sb.mu.RLock()
	defer sb.mu.RUnlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys)+1)
	args = append(args, namespace)
	for _, key := range keys {
		args = append(args, key)
	}

	rows, err := sb.db.QueryContext(ctx,
		"SELECT key, value FROM docfs_objects WHERE namespace = ? AND key IN ("+placeholders+")",
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		result[key] = value
	}

	return result, rows.Err()
}

func (sb *SQLiteBackend) SetObject(ctx context.Context, namespace, key string, value []byte) error {
	return sb.SetObjects(ctx, namespace, map[string][]byte{key: value})
}

func (sb *SQLiteBackend) SetObjects(ctx context.Context, namespace string, values map[string][]byte) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO docfs_objects (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for key, value := range values {
		if value == nil {
			value = []byte{}
		}
		if _, err := stmt.ExecContext(ctx, namespace, key, value, now); err != nil {
			return fmt.Errorf("failed to store object '%s': %w", key, err)
		}
	}

	return tx.Commit()
}

func (sb *SQLiteBackend) DeleteObjects(ctx context.Context, namespace string, keys ...string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM docfs_objects WHERE namespace = ? AND key = ?",
			namespace, key); err != nil {
			return fmt.Errorf("failed to delete object '%s': %w", key, err)
		}
	}

	return tx.Commit()
}

func (sb *SQLiteBackend) ClearNamespace(ctx context.Context, namespace string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	_, err := sb.db.ExecContext(ctx, "DELETE FROM docfs_objects WHERE namespace = ?", namespace)
	return err
}
