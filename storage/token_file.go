package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/oauth2"
)

const (
	defaultLockTimeout = 5 * time.Second
	lockRetryDelay     = 10 * time.Millisecond
)

// FileTokenStore keeps the OAuth token in a JSON file readable only by the
// owner. An advisory lock (path + ".lock") serializes access across processes,
// so a GUI and a CLI sharing one token file do not interleave writes.
type FileTokenStore struct {
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
	mu          sync.Mutex
}

// NewFileTokenStore builds a FileTokenStore rooted at the provided path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{
		path:        path,
		lock:        flock.New(path + ".lock"),
		lockTimeout: defaultLockTimeout,
	}
}

// Path returns the token file location.
func (s *FileTokenStore) Path() string { return s.path }

// LoadToken reads the token from disk. A missing file yields ErrNotFound.
func (s *FileTokenStore) LoadToken(ctx context.Context) (*oauth2.Token, error) {
	var token *oauth2.Token
	err := s.withLock(ctx, false, func() error {
		data, err := os.ReadFile(s.path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return &StorageError{Op: "load", Entity: "token", ID: s.path, Err: ErrNotFound}
			}
			return &StorageError{Op: "load", Entity: "token", ID: s.path, Err: err}
		}

		var tok oauth2.Token
		if err := json.Unmarshal(data, &tok); err != nil {
			return &StorageError{Op: "load", Entity: "token", ID: s.path, Err: fmt.Errorf("%w: %v", ErrStorageCorrupt, err)}
		}
		if tok.AccessToken == "" && tok.RefreshToken == "" {
			return &StorageError{Op: "load", Entity: "token", ID: s.path, Err: fmt.Errorf("%w: token has no credentials", ErrStorageCorrupt)}
		}
		token = &tok
		return nil
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// SaveToken atomically replaces the token file with restricted permissions.
func (s *FileTokenStore) SaveToken(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return &StorageError{Op: "save", Entity: "token", Err: ErrInvalidInput}
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return &StorageError{Op: "save", Entity: "token", ID: s.path, Err: err}
	}

	return s.withLock(ctx, true, func() error {
		w, err := NewAtomicWriter(s.path, 0o600)
		if err != nil {
			return &StorageError{Op: "save", Entity: "token", ID: s.path, Err: err}
		}
		if _, err := w.Write(data); err != nil {
			w.Abort()
			return &StorageError{Op: "save", Entity: "token", ID: s.path, Err: err}
		}
		if err := w.Commit(); err != nil {
			return &StorageError{Op: "save", Entity: "token", ID: s.path, Err: err}
		}
		return nil
	})
}

// DeleteToken removes the token file if present.
func (s *FileTokenStore) DeleteToken(ctx context.Context) error {
	return s.withLock(ctx, true, func() error {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &StorageError{Op: "delete", Entity: "token", ID: s.path, Err: err}
		}
		return nil
	})
}

func (s *FileTokenStore) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return &StorageError{Op: "lock", Entity: "token", ID: s.path, Err: err}
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = s.lock.TryLockContext(lockCtx, lockRetryDelay)
	} else {
		ok, err = s.lock.TryRLockContext(lockCtx, lockRetryDelay)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return &StorageError{Op: "lock", Entity: "token", ID: s.path, Err: err}
	}
	if !ok {
		return ErrLockTimeout
	}
	defer s.lock.Unlock()

	return fn()
}
