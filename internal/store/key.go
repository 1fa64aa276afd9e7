package store

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

var keyEncoder = strings.NewReplacer("%", "%25", "/", "%2F")

// KeyFor maps a working-tree path to the flat directory name holding its
// history. Separators and the escape character itself are percent-escaped,
// so distinct paths never share a key. A leading '.' and names the store
// uses for its own files get their first byte escaped too.
func KeyFor(p string) string {
	key := keyEncoder.Replace(filepath.ToSlash(p))
	if key != "" && (key[0] == '.' || key == CommitsFile || key == RemoteFile) {
		key = fmt.Sprintf("%%%02X", key[0]) + key[1:]
	}
	return key
}

// PathFor reverses KeyFor, returning a slash-separated path. Only keys
// KeyFor can produce are accepted.
func PathFor(key string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		if key[i] != '%' {
			b.WriteByte(key[i])
			continue
		}
		if i+2 >= len(key) {
			return "", fmt.Errorf("%w: invalid key %q", ErrCorruptMetadata, key)
		}
		v, err := strconv.ParseUint(key[i+1:i+3], 16, 8)
		if err != nil {
			return "", fmt.Errorf("%w: invalid key %q", ErrCorruptMetadata, key)
		}
		b.WriteByte(byte(v))
		i += 2
	}

	p := b.String()
	if p == "" || KeyFor(p) != key {
		return "", fmt.Errorf("%w: invalid key %q", ErrCorruptMetadata, key)
	}
	return p, nil
}
