package hist

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aweris/hist/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Repository is a working tree and its history store.
type Repository struct {
	fs    afero.Fs
	store *store.Store
	opts  *Options
	log   logrus.FieldLogger
}

// Open returns the repository whose working tree is the root of fs.
// Nothing is read until the first operation.
func Open(fs afero.Fs, opts ...Option) *Repository {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	options.complete()

	return &Repository{
		fs:    fs,
		store: store.New(fs),
		opts:  options,
		log:   options.Logger,
	}
}

// OpenDir opens the repository rooted at dir on the OS filesystem.
func OpenDir(dir string, opts ...Option) (*Repository, error) {
	abs, err := filepath.Abs(expandPath(dir))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open working tree: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open working tree: %s is not a directory", abs)
	}
	return Open(afero.NewBasePathFs(afero.NewOsFs(), abs), opts...), nil
}

// Init creates an empty store.
func (r *Repository) Init() error {
	if err := r.store.Create(); err != nil {
		return err
	}
	r.log.WithField("dir", r.store.Dir()).Info("initialized empty history")
	return nil
}

// Commits returns the commit log, oldest first.
func (r *Repository) Commits() ([]Commit, error) {
	return r.store.Commits().List()
}

// History returns the version index of the file at p.
func (r *Repository) History(p string) ([]Version, error) {
	if !r.store.Exists() {
		return nil, ErrNotInitialized
	}
	rel, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	return r.store.Versions().ReadIndex(store.KeyFor(rel))
}

// cleanPath turns a user-supplied path into the slash-separated form used
// for keys.
func cleanPath(p string) (string, error) {
	clean := path.Clean(filepath.ToSlash(p))
	clean = strings.TrimPrefix(clean, "./")
	if clean == "." || !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", fmt.Errorf("invalid path %q", p)
	}
	return clean, nil
}

func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
