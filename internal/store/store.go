// Package store implements the on-disk history store.
//
// The store is a single hidden directory at the root of the working tree:
//
//	.history/
//	  commits.json            root commit log (JSON array, insertion order)
//	  remote                  optional remote marker (plain text)
//	  <key>/                  one directory per tracked file
//	    metadata.json         version index (JSON array)
//	    data.bin              append-only data blob
//
// Keys are escaped working-tree paths (see KeyFor). All access goes through
// an afero.Fs rooted at the working tree, so the same code runs against the
// OS filesystem and against an in-memory one.
package store

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	Dir          = ".history"
	CommitsFile  = "commits.json"
	RemoteFile   = "remote"
	MetadataFile = "metadata.json"
	DataFile     = "data.bin"

	tempPrefix = ".tmp-"
)

var (
	ErrUninitialized   = errors.New("store: repository not initialized")
	ErrInitialized     = errors.New("store: repository already initialized")
	ErrNotYetTracked   = errors.New("store: file not yet tracked")
	ErrCorruptMetadata = errors.New("store: corrupt metadata")
	ErrTruncatedBlob   = errors.New("store: truncated data blob")
	ErrRemoteExists    = errors.New("store: remote already configured")
	ErrNoRemote        = errors.New("store: no remote configured")
)

// Store is the history store of one working tree.
type Store struct {
	fs  afero.Fs
	dir string
}

// New returns the store located under the root of fs.
func New(fs afero.Fs) *Store {
	return &Store{fs: fs, dir: Dir}
}

func (s *Store) Dir() string { return s.dir }

// Exists reports whether the store directory is present.
func (s *Store) Exists() bool {
	ok, err := afero.DirExists(s.fs, s.dir)
	return err == nil && ok
}

// Create makes the store directory and an empty commit log.
func (s *Store) Create() error {
	if s.Exists() {
		return ErrInitialized
	}
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	return s.Commits().init()
}

// Remove deletes the whole store directory.
func (s *Store) Remove() error {
	return s.fs.RemoveAll(s.dir)
}

func (s *Store) Commits() *CommitLog {
	return &CommitLog{fs: s.fs, path: filepath.Join(s.dir, CommitsFile)}
}

func (s *Store) Versions() *Versions {
	return &Versions{fs: s.fs, dir: s.dir}
}

// Remote returns the configured remote identifier.
func (s *Store) Remote() (string, error) {
	if !s.Exists() {
		return "", ErrUninitialized
	}
	data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, RemoteFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoRemote
		}
		return "", fmt.Errorf("read remote marker: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SetRemote writes the remote marker. An existing marker is never replaced.
func (s *Store) SetRemote(identifier string) error {
	if !s.Exists() {
		return ErrUninitialized
	}
	p := filepath.Join(s.dir, RemoteFile)
	f, err := s.fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return ErrRemoteExists
		}
		return fmt.Errorf("create remote marker: %w", err)
	}
	if _, err := f.WriteString(identifier); err != nil {
		f.Close()
		return fmt.Errorf("write remote marker: %w", err)
	}
	return f.Close()
}

// Objects returns every file in the store keyed by its slash-separated path
// relative to the store directory.
func (s *Store) Objects() (map[string][]byte, error) {
	if !s.Exists() {
		return nil, ErrUninitialized
	}
	objects := make(map[string][]byte)
	err := afero.Walk(s.fs, s.dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.dir, p)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(s.fs, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		objects[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk store: %w", err)
	}
	return objects, nil
}

// WriteObject writes one store file addressed by its slash-separated path
// relative to the store directory, replacing any existing content.
func (s *Store) WriteObject(rel string, data []byte) error {
	clean := path.Clean(rel)
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("invalid store path %q", rel)
	}
	p := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := s.fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create dir for %s: %w", rel, err)
	}
	return writeFileAtomic(s.fs, p, data, 0644)
}
