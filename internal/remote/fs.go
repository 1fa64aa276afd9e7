package remote

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FSBucket stores objects as files below a directory.
type FSBucket struct {
	fs   afero.Fs
	root string
}

func NewFSBucket(fs afero.Fs, root string) *FSBucket {
	if root == "" {
		root = "."
	}
	return &FSBucket{fs: fs, root: filepath.Clean(root)}
}

func (b *FSBucket) String() string { return "file://" + b.root }

func (b *FSBucket) path(key string) (string, error) {
	clean := path.Clean(key)
	if key == "" || clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("remote: invalid key %q", key)
	}
	return filepath.Join(b.root, filepath.FromSlash(clean)), nil
}

func (b *FSBucket) List(ctx context.Context) ([]string, error) {
	if ok, err := afero.DirExists(b.fs, b.root); err != nil || !ok {
		return nil, err
	}
	var keys []string
	err := afero.Walk(b.fs, b.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", b, err)
	}
	return keys, nil
}

func (b *FSBucket) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(b.fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

func (b *FSBucket) Put(ctx context.Context, key string, data []byte) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := b.fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if err := afero.WriteFile(b.fs, p, data, 0644); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (b *FSBucket) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		p, err := b.path(key)
		if err != nil {
			return err
		}
		if err := b.fs.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}
