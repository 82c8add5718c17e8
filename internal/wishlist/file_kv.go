package wishlist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"explorer.placeexplorer.org/internal/utils"
)

// FileKV stores each key as a file in a data directory. Writes go to a temp
// file that is renamed over the old one, so readers never see a partial value.
type FileKV struct {
	dir      string
	mu       sync.Mutex
	watchers watchers
}

// NewFileKV creates dir if needed.
func NewFileKV(dir string, logger *slog.Logger) (*FileKV, error) {
	if err := utils.CreateDataDirectory(dir, logger); err != nil {
		return nil, err
	}
	return &FileKV{dir: dir}, nil
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *FileKV) Get(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(data), true, nil
}

func (f *FileKV) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	err := f.writeLocked(key, value)
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.watchers.notify(key)
	return nil
}

func (f *FileKV) writeLocked(key, value string) error {
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (f *FileKV) Watch(_ context.Context, key string, fn func()) (func(), error) {
	return f.watchers.add(key, fn), nil
}
