package hist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aweris/hist/internal/store"
	"github.com/aweris/hist/internal/walk"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// ignores merges the working tree's .ignore file with WithIgnore names.
func (r *Repository) ignores() (walk.Ignores, error) {
	ig, err := walk.LoadIgnores(r.fs, walk.IgnoreFile)
	if err != nil {
		return nil, err
	}
	ig.Add(r.opts.Ignore...)
	return ig, nil
}

// files lists the working tree's tracked candidates in walk order.
func (r *Repository) files() ([]string, error) {
	ig, err := r.ignores()
	if err != nil {
		return nil, err
	}
	return walk.Files(r.fs, ".", store.Dir, ig)
}

func (r *Repository) newPool(ctx context.Context) *pool.ContextPool {
	return pool.New().WithMaxGoroutines(r.opts.Concurrency).WithContext(ctx)
}

// clearWorkingTree deletes every non-ignored file and returns once all
// deletions finished.
func (r *Repository) clearWorkingTree(ctx context.Context) error {
	files, err := r.files()
	if err != nil {
		return fmt.Errorf("list working tree: %w", err)
	}

	p := r.newPool(ctx)
	for _, f := range files {
		p.Go(func(ctx context.Context) error {
			if err := r.fs.Remove(filepath.FromSlash(f)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("delete %s: %w", f, err)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	r.log.WithField("files", len(files)).Debug("cleared working tree")
	return nil
}

// writeWorkingFile writes a restored file, creating parent directories.
func (r *Repository) writeWorkingFile(rel string, data []byte) error {
	p := filepath.FromSlash(rel)
	if dir := filepath.Dir(p); dir != "." {
		if err := r.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir for %s: %w", rel, err)
		}
	}
	if err := afero.WriteFile(r.fs, p, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}
