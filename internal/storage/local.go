package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalArchive writes artifacts under a directory, mirroring keys as
// relative paths.
type LocalArchive struct {
	root string
}

// NewLocalArchive creates root if needed.
func NewLocalArchive(root string) (*LocalArchive, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &LocalArchive{root: root}, nil
}

// Put writes body atomically via a temp file and rename.
func (a *LocalArchive) Put(ctx context.Context, key, _ string, body []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := filepath.Join(a.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// Ping checks the root directory is still there and writable.
func (a *LocalArchive) Ping(context.Context) error {
	f, err := os.CreateTemp(a.root, ".ping-*")
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(f.Name())
}
