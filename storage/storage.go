// Package storage persists yucil state: the authorized OAuth token and
// snapshots of fetched playlist results.
package storage

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Entity, storErr.ID, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("load", "save", "delete", "lock").
	Op string
	// Entity is the entity type ("token", "snapshot").
	Entity string
	// ID is the entity ID or path if applicable.
	ID string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// TokenStore persists a single OAuth token between runs.
// Implementations must be safe for concurrent use.
type TokenStore interface {
	// LoadToken returns the stored token or ErrNotFound.
	LoadToken(ctx context.Context) (*oauth2.Token, error)
	// SaveToken replaces the stored token.
	SaveToken(ctx context.Context, token *oauth2.Token) error
	// DeleteToken removes the stored token. Deleting a missing token is not an error.
	DeleteToken(ctx context.Context) error
}

// SnapshotStore records the results of successful playlist fetches.
// Implementations must be safe for concurrent use.
type SnapshotStore interface {
	// SaveSnapshot stores a snapshot, assigning ID and FetchedAt when empty.
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
	// LatestSnapshot returns the most recent snapshot or ErrNotFound.
	LatestSnapshot(ctx context.Context) (*Snapshot, error)
	// ListSnapshots returns up to limit snapshots, newest first. limit <= 0 means all.
	ListSnapshots(ctx context.Context, limit int) ([]*Snapshot, error)

	// Close releases any resources held by the store.
	Close() error
}
