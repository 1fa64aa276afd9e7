package hist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/aweris/hist/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	// DateLayout is the format of commit and version dates (UTC).
	DateLayout = "2006-01-02 15:04:05"

	idLength   = 7
	idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// CommitResult describes a recorded commit.
type CommitResult struct {
	Commit  Commit
	Changed []string // paths that received a new version
}

// change is one pending per-file append.
type change struct {
	path    string
	key     string
	entry   Version
	content []byte
	first   bool
}

// Commit records the working tree. The commit is logged even when no file
// changed. A file gets a new version only if its bytes differ from its
// latest recorded version.
func (r *Repository) Commit(ctx context.Context, description string) (*CommitResult, error) {
	if !r.store.Exists() {
		return nil, ErrNotInitialized
	}

	existing, err := r.store.Commits().List()
	if err != nil {
		return nil, fmt.Errorf("read commit log: %w", err)
	}
	c := Commit{
		Date:        time.Now().UTC().Format(DateLayout),
		Description: description,
		ID:          uniqueCommitID(existing),
	}

	files, err := r.files()
	if err != nil {
		return nil, fmt.Errorf("list working tree: %w", err)
	}

	var result *CommitResult
	if r.opts.AtomicCommit {
		result, err = r.commitStaged(c, files)
	} else {
		result, err = r.commitStreaming(c, files)
	}
	if err != nil {
		return nil, err
	}

	r.log.WithFields(logrus.Fields{
		"commit":  c.ID,
		"files":   len(files),
		"changed": len(result.Changed),
	}).Info("committed")
	return result, nil
}

// commitStreaming logs the commit, then stages and writes file by file. A
// failure leaves the files already written in place.
func (r *Repository) commitStreaming(c Commit, files []string) (*CommitResult, error) {
	if err := r.store.Commits().Append(c); err != nil {
		return nil, fmt.Errorf("record commit: %w", err)
	}

	result := &CommitResult{Commit: c}
	for _, p := range files {
		ch, err := r.stage(c, p)
		if err != nil {
			return nil, err
		}
		if ch == nil {
			continue
		}
		if err := r.apply(ch); err != nil {
			return nil, err
		}
		result.Changed = append(result.Changed, p)
	}
	return result, nil
}

// commitStaged reads every file before writing anything.
func (r *Repository) commitStaged(c Commit, files []string) (*CommitResult, error) {
	var changes []*change
	for _, p := range files {
		ch, err := r.stage(c, p)
		if err != nil {
			return nil, err
		}
		if ch != nil {
			changes = append(changes, ch)
		}
	}

	if err := r.store.Commits().Append(c); err != nil {
		return nil, fmt.Errorf("record commit: %w", err)
	}
	result := &CommitResult{Commit: c}
	for _, ch := range changes {
		if err := r.apply(ch); err != nil {
			return nil, err
		}
		result.Changed = append(result.Changed, ch.path)
	}
	return result, nil
}

// stage compares the file at p with its latest version and returns the
// append to perform, or nil when the content is unchanged.
func (r *Repository) stage(c Commit, p string) (*change, error) {
	content, err := afero.ReadFile(r.fs, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	key := store.KeyFor(p)
	ch := &change{
		path: p,
		key:  key,
		entry: Version{
			Date:        c.Date,
			Description: c.Description,
			CommitID:    c.ID,
			Size:        int64(len(content)),
		},
		content: content,
	}

	versions := r.store.Versions()
	index, err := versions.ReadIndex(key)
	if errors.Is(err, store.ErrNotYetTracked) {
		ch.first = true
		return ch, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index of %s: %w", p, err)
	}

	last := index[len(index)-1]
	if last.Size == ch.entry.Size {
		prev, err := versions.ReadVersion(key, last.Pointer, last.Size)
		if err != nil {
			return nil, fmt.Errorf("read latest version of %s: %w", p, err)
		}
		if bytes.Equal(prev, content) {
			return nil, nil
		}
	}
	ch.entry.Pointer = last.End()
	return ch, nil
}

func (r *Repository) apply(ch *change) error {
	if err := r.store.Versions().AppendVersion(ch.key, ch.entry, ch.content, ch.first); err != nil {
		return fmt.Errorf("record %s: %w", ch.path, err)
	}
	r.log.WithFields(logrus.Fields{
		"path":    ch.path,
		"pointer": ch.entry.Pointer,
		"size":    ch.entry.Size,
	}).Debug("new version")
	return nil
}

func newCommitID() string {
	b := make([]byte, idLength)
	for i := range b {
		b[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return string(b)
}

// uniqueCommitID draws ids until one is not already in the log.
func uniqueCommitID(existing []Commit) string {
	for {
		id := newCommitID()
		if _, ok := store.FindCommit(existing, id); !ok {
			return id
		}
	}
}
