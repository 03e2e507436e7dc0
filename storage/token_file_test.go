package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestFileTokenStoreLoadMissingFile(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "missing.json"))

	_, err := store.LoadToken(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadToken() error = %v, want ErrNotFound", err)
	}

	var storErr *StorageError
	if !errors.As(err, &storErr) {
		t.Fatalf("expected *StorageError, got %T", err)
	}
	if storErr.Op != "load" || storErr.Entity != "token" {
		t.Errorf("unexpected error context: %+v", storErr)
	}
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	store := NewFileTokenStore(path)
	ctx := context.Background()

	expected := &oauth2.Token{
		AccessToken:  "access",
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour).Round(time.Second),
	}
	if err := store.SaveToken(ctx, expected); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file permissions = %o, want 600", perm)
	}

	loaded, err := store.LoadToken(ctx)
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if loaded.AccessToken != expected.AccessToken || loaded.RefreshToken != expected.RefreshToken {
		t.Errorf("loaded token = %+v, want %+v", loaded, expected)
	}
	if !loaded.Expiry.Equal(expected.Expiry) {
		t.Errorf("Expiry = %v, want %v", loaded.Expiry, expected.Expiry)
	}
}

func TestFileTokenStoreSaveNil(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "token.json"))
	if err := store.SaveToken(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("SaveToken(nil) error = %v, want ErrInvalidInput", err)
	}
}

func TestFileTokenStoreCorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{not json"},
		{"no credentials", `{"token_type":"Bearer"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "token.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}

			_, err := NewFileTokenStore(path).LoadToken(context.Background())
			if !errors.Is(err, ErrStorageCorrupt) {
				t.Fatalf("LoadToken() error = %v, want ErrStorageCorrupt", err)
			}
		})
	}
}

func TestFileTokenStoreDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewFileTokenStore(path)
	ctx := context.Background()

	if err := store.DeleteToken(ctx); err != nil {
		t.Fatalf("DeleteToken() on missing file error = %v", err)
	}

	if err := store.SaveToken(ctx, &oauth2.Token{AccessToken: "a"}); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	if err := store.DeleteToken(ctx); err != nil {
		t.Fatalf("DeleteToken() error = %v", err)
	}
	if _, err := store.LoadToken(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadToken() after delete error = %v, want ErrNotFound", err)
	}
}

func TestFileTokenStoreLockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	holder := NewFileTokenStore(path)
	contender := NewFileTokenStore(path)
	contender.lockTimeout = 50 * time.Millisecond

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := holder.lock.Lock(); err != nil {
		t.Fatalf("hold lock: %v", err)
	}
	defer holder.lock.Unlock()

	err := contender.SaveToken(context.Background(), &oauth2.Token{AccessToken: "a"})
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("SaveToken() error = %v, want ErrLockTimeout", err)
	}
}

func TestAtomicWriterAbort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	w, err := NewAtomicWriter(path, 0o600)
	if err != nil {
		t.Fatalf("NewAtomicWriter() error = %v", err)
	}
	if _, err := w.Write([]byte("partial")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Abort(); err != nil {
		t.Fatalf("Abort() error = %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("target should not exist after abort, stat err = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}
