package store_test

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/aweris/hist/internal/store"
	"github.com/spf13/afero"
)

func appendContent(t *testing.T, v *store.Versions, key, id string, content string) store.Version {
	t.Helper()
	index, err := v.ReadIndex(key)
	first := errors.Is(err, store.ErrNotYetTracked)
	if err != nil && !first {
		t.Fatalf("ReadIndex: %v", err)
	}
	entry := store.Version{CommitID: id, Size: int64(len(content))}
	if !first {
		entry.Pointer = index[len(index)-1].End()
	}
	if err := v.AppendVersion(key, entry, []byte(content), first); err != nil {
		t.Fatalf("AppendVersion(%s): %v", id, err)
	}
	return entry
}

func TestVersions_NotYetTracked(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Versions().ReadIndex("x.txt"); !errors.Is(err, store.ErrNotYetTracked) {
		t.Fatalf("ReadIndex err = %v, want ErrNotYetTracked", err)
	}
}

func TestVersions_AppendContiguous(t *testing.T) {
	s, fs := newTestStore(t)
	v := s.Versions()

	appendContent(t, v, "x.txt", "c1", "1")
	appendContent(t, v, "x.txt", "c2", "22")
	appendContent(t, v, "x.txt", "c3", "")
	appendContent(t, v, "x.txt", "c4", "4444")

	index, err := v.ReadIndex("x.txt")
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if len(index) != 4 {
		t.Fatalf("index has %d entries, want 4", len(index))
	}
	if index[0].Pointer != 0 {
		t.Errorf("first pointer = %d, want 0", index[0].Pointer)
	}
	for i := 1; i < len(index); i++ {
		if index[i].Pointer != index[i-1].Pointer+index[i-1].Size {
			t.Errorf("entry %d pointer %d, want %d", i, index[i].Pointer, index[i-1].Pointer+index[i-1].Size)
		}
	}

	blob, err := afero.ReadFile(fs, filepath.Join(store.Dir, "x.txt", store.DataFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) != "1224444" {
		t.Fatalf("blob = %q, want %q", blob, "1224444")
	}

	for _, tc := range []struct {
		i    int
		want string
	}{{0, "1"}, {1, "22"}, {2, ""}, {3, "4444"}} {
		got, err := v.ReadVersion("x.txt", index[tc.i].Pointer, index[tc.i].Size)
		if err != nil {
			t.Fatalf("ReadVersion(%d): %v", tc.i, err)
		}
		if string(got) != tc.want {
			t.Errorf("version %d = %q, want %q", tc.i, got, tc.want)
		}
	}
}

func TestVersions_AppendRejectsGap(t *testing.T) {
	s, _ := newTestStore(t)
	v := s.Versions()
	appendContent(t, v, "x.txt", "c1", "abc")

	err := v.AppendVersion("x.txt", store.Version{CommitID: "c2", Pointer: 5, Size: 1}, []byte("z"), false)
	if !errors.Is(err, store.ErrCorruptMetadata) {
		t.Fatalf("err = %v, want ErrCorruptMetadata", err)
	}
	blob, _ := v.ReadVersion("x.txt", 0, 3)
	if string(blob) != "abc" {
		t.Fatalf("blob changed after rejected append: %q", blob)
	}
}

func TestVersions_AppendDetectsBlobDesync(t *testing.T) {
	s, fs := newTestStore(t)
	v := s.Versions()
	appendContent(t, v, "x.txt", "c1", "abc")

	if err := afero.WriteFile(fs, filepath.Join(store.Dir, "x.txt", store.DataFile), []byte("abcdef"), 0644); err != nil {
		t.Fatal(err)
	}
	err := v.AppendVersion("x.txt", store.Version{CommitID: "c2", Pointer: 3, Size: 1}, []byte("z"), false)
	if !errors.Is(err, store.ErrCorruptMetadata) {
		t.Fatalf("err = %v, want ErrCorruptMetadata", err)
	}
}

func TestVersions_AppendSizeMismatch(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.Versions().AppendVersion("x.txt", store.Version{Size: 10}, []byte("short"), true)
	if !errors.Is(err, store.ErrCorruptMetadata) {
		t.Fatalf("err = %v, want ErrCorruptMetadata", err)
	}
}

func TestVersions_ReadTruncated(t *testing.T) {
	s, fs := newTestStore(t)
	v := s.Versions()
	appendContent(t, v, "x.txt", "c1", "abc")

	if _, err := v.ReadVersion("x.txt", 2, 5); !errors.Is(err, store.ErrTruncatedBlob) {
		t.Fatalf("err = %v, want ErrTruncatedBlob", err)
	}
	if _, err := v.ReadVersion("x.txt", 10, 1); !errors.Is(err, store.ErrTruncatedBlob) {
		t.Fatalf("err past end = %v, want ErrTruncatedBlob", err)
	}

	if err := fs.Remove(filepath.Join(store.Dir, "x.txt", store.DataFile)); err != nil {
		t.Fatal(err)
	}
	if _, err := v.ReadVersion("x.txt", 0, 1); !errors.Is(err, store.ErrTruncatedBlob) {
		t.Fatalf("err missing blob = %v, want ErrTruncatedBlob", err)
	}
}

func TestVersions_ReadOversizedRange(t *testing.T) {
	s, _ := newTestStore(t)
	v := s.Versions()
	appendContent(t, v, "x.txt", "c1", "abc")

	for _, tc := range []struct {
		name          string
		pointer, size int64
	}{
		{"huge size", 0, math.MaxInt64 - 7},
		{"overflowing end", 2, math.MaxInt64},
		{"huge pointer", math.MaxInt64, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.ReadVersion("x.txt", tc.pointer, tc.size); !errors.Is(err, store.ErrTruncatedBlob) {
				t.Fatalf("err = %v, want ErrTruncatedBlob", err)
			}
		})
	}
}

func TestCheckRange(t *testing.T) {
	if err := store.CheckRange("k", 1, 2, 3); err != nil {
		t.Fatalf("in range: %v", err)
	}
	if err := store.CheckRange("k", 3, 0, 3); err != nil {
		t.Fatalf("empty at end: %v", err)
	}
	if err := store.CheckRange("k", 2, 2, 3); !errors.Is(err, store.ErrTruncatedBlob) {
		t.Fatalf("past end err = %v, want ErrTruncatedBlob", err)
	}
	if err := store.CheckRange("k", -1, 1, 3); !errors.Is(err, store.ErrCorruptMetadata) {
		t.Fatalf("negative err = %v, want ErrCorruptMetadata", err)
	}
}

func TestVersions_CorruptIndex(t *testing.T) {
	s, fs := newTestStore(t)
	v := s.Versions()
	appendContent(t, v, "x.txt", "c1", "abc")

	for _, body := range []string{"nope", "[]"} {
		if err := afero.WriteFile(fs, filepath.Join(store.Dir, "x.txt", store.MetadataFile), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := v.ReadIndex("x.txt"); !errors.Is(err, store.ErrCorruptMetadata) {
			t.Errorf("ReadIndex(%q) err = %v, want ErrCorruptMetadata", body, err)
		}
	}
}

func TestVersions_Keys(t *testing.T) {
	s, _ := newTestStore(t)
	v := s.Versions()
	appendContent(t, v, "b.txt", "c1", "b")
	appendContent(t, v, "a%2Fc.txt", "c1", "c")

	keys, err := v.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a%2Fc.txt" || keys[1] != "b.txt" {
		t.Fatalf("Keys = %v, want [a%%2Fc.txt b.txt]", keys)
	}
}

func TestFindVersion(t *testing.T) {
	index := []store.Version{{CommitID: "a", Size: 1}, {CommitID: "b", Pointer: 1, Size: 2}}
	got, ok := store.FindVersion(index, "b")
	if !ok || got.Pointer != 1 {
		t.Fatalf("FindVersion(b) = %+v, %v", got, ok)
	}
	if _, ok := store.FindVersion(index, "z"); ok {
		t.Fatal("FindVersion(z) ok")
	}
}
