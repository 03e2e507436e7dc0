package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	prefix       TEXT NOT NULL,
	playlist_ids TEXT NOT NULL,
	fetched_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_fetched_at ON snapshots(fetched_at DESC);
`

// SQLiteSnapshotStore implements SnapshotStore on a SQLite database.
type SQLiteSnapshotStore struct {
	db   *sql.DB
	path string
}

// OpenSnapshotStore opens (creating if needed) the snapshot database at path.
func OpenSnapshotStore(ctx context.Context, path string) (*SQLiteSnapshotStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: snapshot database path is empty", ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init snapshot schema: %w", err)
	}

	return &SQLiteSnapshotStore{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *SQLiteSnapshotStore) Path() string { return s.path }

// SaveSnapshot inserts snapshot, filling ID and FetchedAt when they are empty.
func (s *SQLiteSnapshotStore) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	if snapshot == nil {
		return &StorageError{Op: "save", Entity: "snapshot", Err: ErrInvalidInput}
	}
	if err := snapshot.Validate(); err != nil {
		return &StorageError{Op: "save", Entity: "snapshot", ID: snapshot.ID, Err: err}
	}
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now().UTC()
	}

	ids := snapshot.PlaylistIDs
	if ids == nil {
		ids = []string{}
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return &StorageError{Op: "save", Entity: "snapshot", ID: snapshot.ID, Err: err}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, prefix, playlist_ids, fetched_at) VALUES (?, ?, ?, ?)`,
		snapshot.ID, snapshot.Prefix, string(encoded), snapshot.FetchedAt.UnixNano())
	if err != nil {
		return &StorageError{Op: "save", Entity: "snapshot", ID: snapshot.ID, Err: err}
	}
	return nil
}

// LatestSnapshot returns the newest snapshot.
func (s *SQLiteSnapshotStore) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	snapshots, err := s.ListSnapshots(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, &StorageError{Op: "load", Entity: "snapshot", Err: ErrNotFound}
	}
	return snapshots[0], nil
}

// ListSnapshots returns up to limit snapshots, newest first.
func (s *SQLiteSnapshotStore) ListSnapshots(ctx context.Context, limit int) ([]*Snapshot, error) {
	query := `SELECT id, prefix, playlist_ids, fetched_at FROM snapshots ORDER BY fetched_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Op: "list", Entity: "snapshot", Err: err}
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		var (
			snap    Snapshot
			encoded string
			nanos   int64
		)
		if err := rows.Scan(&snap.ID, &snap.Prefix, &encoded, &nanos); err != nil {
			return nil, &StorageError{Op: "list", Entity: "snapshot", Err: err}
		}
		if err := json.Unmarshal([]byte(encoded), &snap.PlaylistIDs); err != nil {
			return nil, &StorageError{Op: "list", Entity: "snapshot", ID: snap.ID, Err: errors.Join(ErrStorageCorrupt, err)}
		}
		snap.FetchedAt = time.Unix(0, nanos).UTC()
		out = append(out, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list", Entity: "snapshot", Err: err}
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteSnapshotStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
