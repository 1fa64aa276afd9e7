// Package walk enumerates the trackable files of a working tree.
package walk

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// IgnoreFile is the per-repository list of ignored names.
const IgnoreFile = ".ignore"

// Ignores is a set of exact path-component names excluded from traversal.
type Ignores map[string]struct{}

// NewIgnores builds a set from names.
func NewIgnores(names ...string) Ignores {
	ig := make(Ignores, len(names))
	ig.Add(names...)
	return ig
}

func (ig Ignores) Add(names ...string) {
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			ig[n] = struct{}{}
		}
	}
}

// Match reports whether name is ignored.
func (ig Ignores) Match(name string) bool {
	_, ok := ig[name]
	return ok
}

// LoadIgnores reads an ignore file: one name per line, blank lines and lines
// starting with '#' skipped. A missing file yields an empty set.
func LoadIgnores(fs afero.Fs, path string) (Ignores, error) {
	ig := NewIgnores()
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ig, nil
		}
		return nil, fmt.Errorf("open ignore file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ig.Add(line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file: %w", err)
	}
	return ig, nil
}

// Files returns every regular file below root in depth-first lexical order,
// as slash-separated paths relative to root. Directories named skipDir or
// matching an ignore pattern are pruned; ignored files are left out.
func Files(fs afero.Fs, root, skipDir string, ignores Ignores) ([]string, error) {
	var paths []string
	err := afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}

		name := info.Name()
		if info.IsDir() {
			if name == skipDir || ignores.Match(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || ignores.Match(name) {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, nil
}
