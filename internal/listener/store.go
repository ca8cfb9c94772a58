package listener

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS processed_messages (
    id INTEGER PRIMARY KEY,
    processed_at TEXT NOT NULL
);`

// ErrSchemaMismatch indicates the database was written by an incompatible build.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store records direct messages the listener has already handled so a
// gateway replay or reconnect does not forward or announce them twice.
type Store struct {
	db        *sql.DB
	path      string
	retention int
}

// OpenStore opens or creates the processed-id database at path. Only the
// newest retention ids are kept; a non-positive retention keeps everything.
func OpenStore(path string, retention int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create listener db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes writers without relying on busy retries.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, retention: retention}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	switch version {
	case 0:
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return tx.Commit()
	case schemaVersion:
		return nil
	default:
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Mark records id and reports whether it was new. Older ids beyond the
// retention window are pruned in the same transaction.
func (s *Store) Mark(ctx context.Context, id uint64, now time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin mark tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_messages (id, processed_at) VALUES (?, ?)`,
		int64(id), now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("insert processed id: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("processed id rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	if s.retention > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM processed_messages WHERE id NOT IN (
                SELECT id FROM processed_messages ORDER BY id DESC LIMIT ?
            )`,
			s.retention,
		); err != nil {
			return false, fmt.Errorf("prune processed ids: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit processed id: %w", err)
	}
	return true, nil
}

// Seen reports whether id was recorded.
func (s *Store) Seen(ctx context.Context, id uint64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM processed_messages WHERE id = ?`, int64(id),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query processed id: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of retained ids.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM processed_messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count processed ids: %w", err)
	}
	return n, nil
}
