package hist

import (
	"context"
	"fmt"

	"github.com/aweris/hist/internal/store"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Verify checks every version index against its blob and the commit log.
// All problems are reported together; nothing is repaired.
func (r *Repository) Verify(ctx context.Context) error {
	if !r.store.Exists() {
		return ErrNotInitialized
	}

	commits, err := r.store.Commits().List()
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(commits))
	for _, c := range commits {
		known[c.ID] = struct{}{}
	}

	versions := r.store.Versions()
	keys, err := versions.Keys()
	if err != nil {
		return fmt.Errorf("list tracked files: %w", err)
	}

	var errs error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		errs = multierr.Append(errs, r.verifyKey(versions, key, known))
	}

	r.log.WithFields(logrus.Fields{
		"files":    len(keys),
		"commits":  len(commits),
		"problems": len(multierr.Errors(errs)),
	}).Info("verified history")
	return errs
}

func (r *Repository) verifyKey(versions *store.Versions, key string, known map[string]struct{}) error {
	p, err := store.PathFor(key)
	if err != nil {
		return err
	}
	index, err := versions.ReadIndex(key)
	if err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}

	var errs error
	for i, v := range index {
		switch {
		case v.Size < 0:
			errs = multierr.Append(errs, fmt.Errorf("%w: %s: version %d has negative size", ErrCorruptMetadata, p, i))
		case i == 0 && v.Pointer != 0:
			errs = multierr.Append(errs, fmt.Errorf("%w: %s: first version starts at %d", ErrCorruptMetadata, p, v.Pointer))
		case i > 0 && v.Pointer != index[i-1].End():
			errs = multierr.Append(errs, fmt.Errorf("%w: %s: version %d starts at %d, previous ends at %d",
				ErrCorruptMetadata, p, i, v.Pointer, index[i-1].End()))
		}
		if _, ok := known[v.CommitID]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s: version %d references unknown commit %s",
				ErrCorruptMetadata, p, i, v.CommitID))
		}
	}

	size, err := versions.BlobSize(key)
	if err != nil {
		return multierr.Append(errs, fmt.Errorf("%s: %w", p, err))
	}
	if end := index[len(index)-1].End(); size < end {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s: blob has %d bytes, index needs %d", ErrTruncatedBlob, p, size, end))
	}
	return errs
}
