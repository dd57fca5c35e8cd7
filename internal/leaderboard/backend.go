package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Backend reads and writes the serialized leaderboard document as a whole.
// Load returns nil data when nothing has been stored yet.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// FileBackend stores the document in a single JSON file.
type FileBackend struct {
	Path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

func (f *FileBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading leaderboard file: %w", err)
	}
	return data, nil
}

// Save writes to a temp file in the same directory and renames it over the
// target so readers never observe a partial document.
func (f *FileBackend) Save(ctx context.Context, data []byte) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating leaderboard dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".leaderboard-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		return fmt.Errorf("replacing leaderboard file: %w", err)
	}
	return nil
}

// DocumentStore is satisfied by *db.DB.
type DocumentStore interface {
	LoadLeaderboard(ctx context.Context) ([]byte, error)
	SaveLeaderboard(ctx context.Context, body []byte) error
}

// DBBackend keeps the document in a single Postgres row.
type DBBackend struct {
	store DocumentStore
}

func NewDBBackend(store DocumentStore) *DBBackend {
	return &DBBackend{store: store}
}

func (b *DBBackend) Load(ctx context.Context) ([]byte, error) {
	return b.store.LoadLeaderboard(ctx)
}

func (b *DBBackend) Save(ctx context.Context, data []byte) error {
	return b.store.SaveLeaderboard(ctx, data)
}
