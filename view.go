package hist

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aweris/hist/internal/store"
	"github.com/sirupsen/logrus"
)

// restore is one file to rebuild from the store.
type restore struct {
	key     string
	path    string
	version Version
}

// View replaces the working tree with the snapshot of commit id. Every
// non-ignored file is deleted first, then each tracked file is written back
// at the version the view policy selects.
func (r *Repository) View(ctx context.Context, id string) error {
	if !r.store.Exists() {
		return ErrNotInitialized
	}

	plan, err := r.planView(id)
	if err != nil {
		return err
	}

	if err := r.clearWorkingTree(ctx); err != nil {
		return err
	}

	versions := r.store.Versions()
	p := r.newPool(ctx)
	for _, item := range plan {
		p.Go(func(ctx context.Context) error {
			data, err := versions.ReadVersion(item.key, item.version.Pointer, item.version.Size)
			if err != nil {
				return fmt.Errorf("read %s: %w", item.path, err)
			}
			return r.writeWorkingFile(item.path, data)
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	r.log.WithFields(logrus.Fields{
		"commit": id,
		"files":  len(plan),
		"policy": r.opts.ViewPolicy,
	}).Info("restored snapshot")
	return nil
}

// planView resolves the version of every tracked file. Nothing is touched
// on disk, so a bad index or unknown commit fails before the working tree
// is cleared.
func (r *Repository) planView(id string) ([]restore, error) {
	var position map[string]int
	target := -1
	if r.opts.ViewPolicy == ViewStrict {
		commits, err := r.store.Commits().List()
		if err != nil {
			return nil, fmt.Errorf("read commit log: %w", err)
		}
		if target = store.IndexOf(commits, id); target < 0 {
			return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, id)
		}
		position = make(map[string]int, len(commits))
		for i, c := range commits {
			position[c.ID] = i
		}
	}

	versions := r.store.Versions()
	keys, err := versions.Keys()
	if err != nil {
		return nil, fmt.Errorf("list tracked files: %w", err)
	}

	plan := make([]restore, 0, len(keys))
	for _, key := range keys {
		p, err := store.PathFor(key)
		if err != nil {
			return nil, err
		}
		if !filepath.IsLocal(filepath.FromSlash(p)) {
			return nil, fmt.Errorf("%w: key %q escapes the working tree", ErrCorruptMetadata, key)
		}
		index, err := versions.ReadIndex(key)
		if err != nil {
			return nil, fmt.Errorf("read index of %s: %w", p, err)
		}

		var (
			v  Version
			ok bool
		)
		if position != nil {
			v, ok = versionAt(index, position, target)
		} else {
			v, ok = store.FindVersion(index, id)
			if !ok {
				v, ok = index[len(index)-1], true
			}
		}
		if !ok {
			continue
		}
		blobSize, err := versions.BlobSize(key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		if err := store.CheckRange(key, v.Pointer, v.Size, blobSize); err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		plan = append(plan, restore{key: key, path: p, version: v})
	}
	return plan, nil
}

// versionAt returns the last version written by a commit at or before
// position target of the commit log.
func versionAt(index []Version, position map[string]int, target int) (Version, bool) {
	var (
		found Version
		ok    bool
	)
	for _, v := range index {
		pos, known := position[v.CommitID]
		if !known || pos > target {
			continue
		}
		found, ok = v, true
	}
	return found, ok
}
