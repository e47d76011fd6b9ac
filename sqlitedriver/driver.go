// Package sqlitedriver persists a propstore.Store to a SQLite database.
//
// Entries live in a single table keyed by (namespace, key). Save replaces the
// whole table inside one transaction.
package sqlitedriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"code.byted.org/khicago/propstore"
)

const schema = `CREATE TABLE IF NOT EXISTS properties (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (namespace, key)
)`

// Driver implements propstore.Driver on top of SQLite.
type Driver struct {
	db   *sql.DB
	path string
}

var _ propstore.Driver = (*Driver)(nil)

// Open opens (creating if needed) the database at path.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*Driver, error) {
	if path == "" {
		path = "propstore.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases coherent across calls.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create properties table: %w", err)
	}
	return &Driver{db: db, path: path}, nil
}

func (d *Driver) Load(ctx context.Context) (map[string]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT namespace, key, value FROM properties`)
	if err != nil {
		return nil, fmt.Errorf("select properties: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var ns, key, value string
		if err := rows.Scan(&ns, &key, &value); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out[propstore.QualifiedKey(ns, key)] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}
	return out, nil
}

func (d *Driver) Save(ctx context.Context, entries map[string]string) (retErr error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM properties`); err != nil {
		return fmt.Errorf("clear properties: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO properties(namespace, key, value) VALUES(?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for qk, value := range entries {
		ns, key, err := propstore.SplitKey(qk)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, ns, key, value); err != nil {
			return fmt.Errorf("insert %s: %w", qk, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (d *Driver) Close() error { return d.db.Close() }

// Path returns the configured database path.
func (d *Driver) Path() string { return d.path }
