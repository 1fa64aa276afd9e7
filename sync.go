package hist

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aweris/hist/internal/remote"
	"github.com/aweris/hist/internal/store"
	"github.com/sirupsen/logrus"
)

// objectPrefix starts every remote object key.
const objectPrefix = store.Dir + "/"

// SetRemote records the remote this repository syncs with. An existing
// remote is never replaced.
func (r *Repository) SetRemote(identifier string) error {
	if identifier == "" {
		return errors.New("hist: empty remote identifier")
	}
	if err := r.store.SetRemote(identifier); err != nil {
		return err
	}
	r.log.WithField("remote", identifier).Info("remote set")
	return nil
}

// Remote returns the configured remote identifier.
func (r *Repository) Remote() (string, error) {
	return r.store.Remote()
}

// Clone creates the store from the remote and checks out its latest commit.
func (r *Repository) Clone(ctx context.Context, identifier string) error {
	if r.store.Exists() {
		return ErrAlreadyInitialized
	}

	objects, commits, err := r.fetch(ctx, identifier)
	if err != nil {
		return err
	}
	if _, ok := objects[store.RemoteFile]; !ok {
		objects[store.RemoteFile] = []byte(identifier)
	}
	if err := r.replaceStore(objects); err != nil {
		return err
	}

	latest := commits[len(commits)-1]
	r.log.WithFields(logrus.Fields{
		"remote":  identifier,
		"objects": len(objects),
		"commit":  latest.ID,
	}).Info("cloned")
	return r.View(ctx, latest.ID)
}

// Pull replaces the local store with the remote one and checks out its
// latest commit. Local commits the remote does not have are discarded.
func (r *Repository) Pull(ctx context.Context) error {
	identifier, err := r.Remote()
	if err != nil {
		return err
	}

	objects, commits, err := r.fetch(ctx, identifier)
	if err != nil {
		return err
	}

	local, err := r.store.Commits().List()
	if err != nil {
		return fmt.Errorf("read commit log: %w", err)
	}
	discarded := 0
	for _, c := range local {
		if store.IndexOf(commits, c.ID) < 0 {
			discarded++
		}
	}
	r.log.WithField("discarded", discarded).Warn("pull replaces local history; commits not pushed are lost")

	objects[store.RemoteFile] = []byte(identifier)
	if err := r.replaceStore(objects); err != nil {
		return err
	}

	latest := commits[len(commits)-1]
	r.log.WithFields(logrus.Fields{
		"remote":  identifier,
		"objects": len(objects),
		"commit":  latest.ID,
	}).Info("pulled")
	return r.View(ctx, latest.ID)
}

// Push mirrors the local store to the remote. It refuses when the remote's
// latest commit is unknown locally, and when the remote already has as many
// commits as the local log.
func (r *Repository) Push(ctx context.Context) error {
	identifier, err := r.Remote()
	if err != nil {
		return err
	}
	local, err := r.store.Commits().List()
	if err != nil {
		return fmt.Errorf("read commit log: %w", err)
	}

	b, err := r.opts.OpenBucket(ctx, identifier)
	if err != nil {
		return fmt.Errorf("open remote %s: %w", identifier, err)
	}

	var remoteCommits []Commit
	data, err := b.Get(ctx, objectPrefix+store.CommitsFile)
	switch {
	case errors.Is(err, remote.ErrObjectNotFound):
	case err != nil:
		return fmt.Errorf("fetch remote commit log: %w", err)
	default:
		if remoteCommits, err = store.DecodeCommits(data); err != nil {
			return fmt.Errorf("remote commit log: %w", err)
		}
	}

	if n := len(remoteCommits); n > 0 {
		if latest := remoteCommits[n-1]; store.IndexOf(local, latest.ID) < 0 {
			return fmt.Errorf("%w: %s", ErrRemoteAhead, latest.ID)
		}
	}
	if len(remoteCommits) >= len(local) {
		return ErrNothingToPush
	}

	files, err := r.store.Objects()
	if err != nil {
		return err
	}
	objects := make(map[string][]byte, len(files))
	for rel, data := range files {
		objects[objectPrefix+rel] = data
	}

	if err := r.opts.SyncStrategy.Upload(ctx, b, objects); err != nil {
		return fmt.Errorf("push to %s: %w", identifier, err)
	}

	r.log.WithFields(logrus.Fields{
		"remote":  identifier,
		"objects": len(objects),
		"commits": len(local) - len(remoteCommits),
	}).Info("pushed")
	return nil
}

// fetch downloads the remote store and returns its files keyed by path
// relative to the store directory, plus its commit log.
func (r *Repository) fetch(ctx context.Context, identifier string) (map[string][]byte, []Commit, error) {
	b, err := r.opts.OpenBucket(ctx, identifier)
	if err != nil {
		return nil, nil, fmt.Errorf("open remote %s: %w", identifier, err)
	}

	downloaded, err := r.opts.SyncStrategy.Download(ctx, b)
	if err != nil {
		return nil, nil, fmt.Errorf("pull from %s: %w", identifier, err)
	}

	objects := make(map[string][]byte, len(downloaded))
	for key, data := range downloaded {
		rel, ok := strings.CutPrefix(key, objectPrefix)
		if !ok || rel == "" || path.Clean(rel) != rel || rel == ".." || strings.HasPrefix(rel, "../") {
			return nil, nil, fmt.Errorf("remote %s: unexpected object %q", identifier, key)
		}
		objects[rel] = data
	}

	data, ok := objects[store.CommitsFile]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrRemoteEmpty, identifier)
	}
	commits, err := store.DecodeCommits(data)
	if err != nil {
		return nil, nil, fmt.Errorf("remote commit log: %w", err)
	}
	if len(commits) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrRemoteEmpty, identifier)
	}
	return objects, commits, nil
}

// replaceStore swaps the local store for objects.
func (r *Repository) replaceStore(objects map[string][]byte) error {
	if err := r.store.Remove(); err != nil {
		return fmt.Errorf("remove local store: %w", err)
	}
	if err := r.store.Create(); err != nil {
		return fmt.Errorf("create local store: %w", err)
	}
	for rel, data := range objects {
		if err := r.store.WriteObject(rel, data); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
	}
	return nil
}
