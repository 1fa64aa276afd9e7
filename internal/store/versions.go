package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// Version describes one recorded version of a tracked file: the commit that
// recorded it and the byte range it occupies in the file's data blob.
type Version struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	CommitID    string `json:"commit_id"`
	Pointer     int64  `json:"pointer_to_data"`
	Size        int64  `json:"size"`
}

// End is the blob offset just past this version.
func (v Version) End() int64 { return v.Pointer + v.Size }

// Versions manages the per-file version indexes and data blobs.
//
// Versions are laid out contiguously in the blob in index order:
// index[i].Pointer == index[i-1].End(). The blob only ever grows.
type Versions struct {
	fs  afero.Fs
	dir string
}

func (v *Versions) keyDir(key string) string   { return filepath.Join(v.dir, key) }
func (v *Versions) indexPath(key string) string { return filepath.Join(v.dir, key, MetadataFile) }
func (v *Versions) blobPath(key string) string  { return filepath.Join(v.dir, key, DataFile) }

// ReadIndex loads the version index of key. A key that has never been
// recorded yields ErrNotYetTracked.
func (v *Versions) ReadIndex(key string) ([]Version, error) {
	data, err := afero.ReadFile(v.fs, v.indexPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotYetTracked
		}
		return nil, fmt.Errorf("read index %s: %w", key, err)
	}
	var index []Version
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: index %s: %v", ErrCorruptMetadata, key, err)
	}
	if len(index) == 0 {
		return nil, fmt.Errorf("%w: index %s is empty", ErrCorruptMetadata, key)
	}
	return index, nil
}

// AppendVersion records content as a new version of key. With first set it
// creates the key directory, a one-entry index and the blob. Otherwise entry
// must continue the existing index and the blob must end exactly where the
// index says; content is appended to the blob and the index rewritten.
func (v *Versions) AppendVersion(key string, entry Version, content []byte, first bool) error {
	if entry.Size != int64(len(content)) {
		return fmt.Errorf("%w: %s: entry size %d, content has %d bytes", ErrCorruptMetadata, key, entry.Size, len(content))
	}
	if first {
		return v.create(key, entry, content)
	}

	index, err := v.ReadIndex(key)
	if err != nil {
		return err
	}
	if last := index[len(index)-1]; entry.Pointer != last.End() {
		return fmt.Errorf("%w: %s: entry at %d does not continue index ending at %d", ErrCorruptMetadata, key, entry.Pointer, last.End())
	}
	size, err := v.BlobSize(key)
	if err != nil {
		return err
	}
	if size != entry.Pointer {
		return fmt.Errorf("%w: %s: blob has %d bytes, index ends at %d", ErrCorruptMetadata, key, size, entry.Pointer)
	}

	if err := appendFile(v.fs, v.blobPath(key), content); err != nil {
		return fmt.Errorf("append blob %s: %w", key, err)
	}
	return v.writeIndex(key, append(index, entry))
}

func (v *Versions) create(key string, entry Version, content []byte) error {
	if entry.Pointer != 0 {
		return fmt.Errorf("%w: %s: first entry at %d", ErrCorruptMetadata, key, entry.Pointer)
	}
	if err := v.fs.MkdirAll(v.keyDir(key), 0755); err != nil {
		return fmt.Errorf("create key dir %s: %w", key, err)
	}
	if err := afero.WriteFile(v.fs, v.blobPath(key), content, 0644); err != nil {
		return fmt.Errorf("create blob %s: %w", key, err)
	}
	return v.writeIndex(key, []Version{entry})
}

func (v *Versions) writeIndex(key string, index []Version) error {
	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("encode index %s: %w", key, err)
	}
	if err := writeFileAtomic(v.fs, v.indexPath(key), data, 0644); err != nil {
		return fmt.Errorf("write index %s: %w", key, err)
	}
	return nil
}

// ReadVersion reads size bytes at pointer from the blob of key. Running out
// of bytes means the index and blob disagree and yields ErrTruncatedBlob.
func (v *Versions) ReadVersion(key string, pointer, size int64) (_ []byte, err error) {
	f, err := v.fs.Open(v.blobPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s: blob missing", ErrTruncatedBlob, key)
		}
		return nil, fmt.Errorf("open blob %s: %w", key, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat blob %s: %w", key, err)
	}
	if err := CheckRange(key, pointer, size, info.Size()); err != nil {
		return nil, err
	}

	if _, err := f.Seek(pointer, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek blob %s: %w", key, err)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %s: want %d bytes at %d", ErrTruncatedBlob, key, size, pointer)
		}
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return buf, nil
}

// CheckRange reports ErrTruncatedBlob when pointer+size overflows or runs
// past a blob of blobSize bytes.
func CheckRange(key string, pointer, size, blobSize int64) error {
	if pointer < 0 || size < 0 {
		return fmt.Errorf("%w: %s: negative range %d+%d", ErrCorruptMetadata, key, pointer, size)
	}
	if pointer > blobSize || size > blobSize-pointer {
		return fmt.Errorf("%w: %s: want %d bytes at %d, blob has %d", ErrTruncatedBlob, key, size, pointer, blobSize)
	}
	return nil
}

// BlobSize returns the current length of the blob of key.
func (v *Versions) BlobSize(key string) (int64, error) {
	info, err := v.fs.Stat(v.blobPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s: blob missing", ErrTruncatedBlob, key)
		}
		return 0, fmt.Errorf("stat blob %s: %w", key, err)
	}
	return info.Size(), nil
}

// Keys lists every tracked key in lexical order.
func (v *Versions) Keys() ([]string, error) {
	infos, err := afero.ReadDir(v.fs, v.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrUninitialized
		}
		return nil, fmt.Errorf("list store: %w", err)
	}
	var keys []string
	for _, info := range infos {
		if info.IsDir() {
			keys = append(keys, info.Name())
		}
	}
	return keys, nil
}

// FindVersion returns the entry recorded by commit id.
func FindVersion(index []Version, id string) (Version, bool) {
	for _, v := range index {
		if v.CommitID == id {
			return v, true
		}
	}
	return Version{}, false
}
