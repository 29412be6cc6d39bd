package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	key        TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at DATETIME NOT NULL
)`

// SQLiteDriver stores snapshots as rows in a SQLite database. Keys are the
// same paths the file driver would use, which keeps backup naming intact.
type SQLiteDriver struct {
	db  *sql.DB
	dsn string
}

// OpenSQLite opens (or creates) the database at dsn and ensures the snapshots
// table exists. Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteDriver, error) {
	if dsn == "" {
		return nil, fmt.Errorf("driver: sqlite dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("driver: open sqlite %q: %w", dsn, err)
	}
	// An in-memory database only lives as long as its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("driver: create snapshots table: %w", err)
	}
	return &SQLiteDriver{db: db, dsn: dsn}, nil
}

// Close releases the database handle.
func (d *SQLiteDriver) Close() error {
	return d.db.Close()
}

func (d *SQLiteDriver) Write(ctx context.Context, key string, data []byte) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("driver: write %q: %w", key, err)
	}
	return nil
}

func (d *SQLiteDriver) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := d.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE key = ?`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return nil, fmt.Errorf("driver: read %q: %w", key, err)
	}
	return data, nil
}

func (d *SQLiteDriver) Exists(ctx context.Context, key string) (bool, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM snapshots WHERE key = ?`, key).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("driver: exists %q: %w", key, err)
	}
	return count > 0, nil
}
