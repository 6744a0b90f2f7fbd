package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// ObjectStore is where generated instance files end up.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
}

// DirStore writes objects below a local directory.
type DirStore struct {
	Root string
}

func NewDirStore(root string) *DirStore { return &DirStore{Root: root} }

func (d *DirStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return fmt.Errorf("key %q escapes store root", key)
	}
	dst := filepath.Join(d.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// MultiStore writes every object to all of its stores.
type MultiStore []ObjectStore

func (m MultiStore) Put(ctx context.Context, key string, data []byte) error {
	var errs []error
	for _, s := range m {
		if err := s.Put(ctx, key, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func contentType(key string) string {
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".csv":
		return "text/csv"
	default:
		return "text/plain; charset=utf-8"
	}
}
