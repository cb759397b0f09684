// Package local keeps session blobs as files in one directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fruitsalade/slackfiles/internal/store"
)

// Config holds local filesystem backend settings.
type Config struct {
	RootPath   string `toml:"root_path"`
	CreateDirs bool   `toml:"create_dirs"`
}

// LocalBackend stores each key as a file under RootPath. Keys cannot
// escape the root.
type LocalBackend struct {
	root string
}

// New opens the directory at cfg.RootPath, creating it when CreateDirs is set.
func New(cfg Config) (*LocalBackend, error) {
	if cfg.RootPath == "" {
		return nil, errors.New("local store: root_path is required")
	}

	info, err := os.Stat(cfg.RootPath)
	switch {
	case errors.Is(err, fs.ErrNotExist) && cfg.CreateDirs:
		if err := os.MkdirAll(cfg.RootPath, 0o700); err != nil {
			return nil, fmt.Errorf("local store: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("local store: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("local store: %s is not a directory", cfg.RootPath)
	}
	return &LocalBackend{root: cfg.RootPath}, nil
}

// path maps key to a file under the root.
func (b *LocalBackend) path(key string) string {
	return filepath.Join(b.root, filepath.FromSlash(filepath.Clean("/"+key)))
}

// GetObject returns the blob stored under key.
func (b *LocalBackend) GetObject(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// PutObject replaces the blob under key. Readers see either the old or
// the new blob, never a partial write.
func (b *LocalBackend) PutObject(_ context.Context, key string, data []byte) error {
	target := b.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if err := writeAtomic(target, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func writeAtomic(target string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".slackfiles-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// DeleteObject removes the blob under key. Missing keys are not an error.
func (b *LocalBackend) DeleteObject(_ context.Context, key string) error {
	if err := os.Remove(b.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Type returns "local".
func (b *LocalBackend) Type() string { return "local" }

// Close does nothing.
func (b *LocalBackend) Close() error { return nil }
