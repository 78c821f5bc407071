// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package history records generated builds so a wearer's tuned
// configuration can be found and re-exported later: one row per
// generation with the target, the full parameter snapshot, and the
// output filename.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrNotFound is returned by Get for an unknown build id.
var ErrNotFound = errors.New("history: build not found")

// Record is one generated build.
type Record struct {
	ID        int64
	CreatedAt time.Time
	Target    string
	// Snapshot is the flat parameter JSON document that produced the
	// build, re-loadable via params.Load.
	Snapshot string
	Filename string
}

// Store is a SQLite-backed build history. Safe for concurrent use.
type Store struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// Open opens (creating if needed) the history database. Use
// ":memory:" in tests.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history: path is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolSize := 4
	dsn := path
	if path == ":memory:" {
		// Each in-memory connection is an independent database; the
		// pool must hold exactly one. sqlitex rejects the bare
		// ":memory:" spelling and requires the URI form.
		poolSize = 1
		dsn = "file::memory:?mode=memory&cache=shared"
	}
	pool, err := sqlitex.NewPool(dsn, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			return prepareConnection(conn)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("history: opening %s: %w", path, err)
	}
	store := &Store{pool: pool, logger: logger, path: path}
	if err := store.migrate(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("history: closing %s: %w", s.path, err)
	}
	return nil
}

func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("history: %s: %w", pragma, err)
		}
	}
	return nil
}

// migrate creates the builds table and upgrades databases written by
// earlier versions that predate the target column.
func (s *Store) migrate(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.ExecuteTransient(conn, `
		CREATE TABLE IF NOT EXISTS builds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			target TEXT NOT NULL DEFAULT 'full',
			snapshot TEXT NOT NULL,
			filename TEXT NOT NULL
		)`, nil)
	if err != nil {
		return fmt.Errorf("history: creating schema: %w", err)
	}

	// Early databases had no target column.
	hasTarget := false
	err = sqlitex.ExecuteTransient(conn, "PRAGMA table_info(builds)", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			if stmt.ColumnText(1) == "target" {
				hasTarget = true
			}
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("history: inspecting schema: %w", err)
	}
	if !hasTarget {
		s.logger.Info("upgrading history schema: adding target column")
		err = sqlitex.ExecuteTransient(conn,
			"ALTER TABLE builds ADD COLUMN target TEXT NOT NULL DEFAULT 'full'", nil)
		if err != nil {
			return fmt.Errorf("history: upgrading schema: %w", err)
		}
	}
	return nil
}

// Add records a generated build and returns its id.
func (s *Store) Add(ctx context.Context, target, snapshot, filename string) (int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("history: add: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT INTO builds (created_at, target, snapshot, filename) VALUES (?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{
				time.Now().UTC().Format(time.RFC3339),
				target,
				snapshot,
				filename,
			},
		})
	if err != nil {
		return 0, fmt.Errorf("history: inserting build: %w", err)
	}
	return conn.LastInsertRowID(), nil
}

// List returns all builds, newest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer s.pool.Put(conn)

	var records []Record
	err = sqlitex.Execute(conn,
		"SELECT id, created_at, target, snapshot, filename FROM builds ORDER BY id DESC",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record, err := scanRecord(stmt)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("history: listing builds: %w", err)
	}
	return records, nil
}

// Get returns one build by id.
func (s *Store) Get(ctx context.Context, id int64) (Record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("history: get: %w", err)
	}
	defer s.pool.Put(conn)

	var record Record
	found := false
	err = sqlitex.Execute(conn,
		"SELECT id, created_at, target, snapshot, filename FROM builds WHERE id = ?",
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				r, err := scanRecord(stmt)
				if err != nil {
					return err
				}
				record = r
				found = true
				return nil
			},
		})
	if err != nil {
		return Record{}, fmt.Errorf("history: fetching build %d: %w", id, err)
	}
	if !found {
		return Record{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return record, nil
}

func scanRecord(stmt *sqlite.Stmt) (Record, error) {
	createdAt, err := time.Parse(time.RFC3339, stmt.ColumnText(1))
	if err != nil {
		return Record{}, fmt.Errorf("history: build %d has malformed timestamp %q",
			stmt.ColumnInt64(0), stmt.ColumnText(1))
	}
	return Record{
		ID:        stmt.ColumnInt64(0),
		CreatedAt: createdAt,
		Target:    stmt.ColumnText(2),
		Snapshot:  stmt.ColumnText(3),
		Filename:  stmt.ColumnText(4),
	}, nil
}
