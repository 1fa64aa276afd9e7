package hist_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/aweris/hist"
	"github.com/spf13/afero"
)

func TestInit_Twice(t *testing.T) {
	repo, _ := newRepo(t)
	if err := repo.Init(); !errors.Is(err, hist.ErrAlreadyInitialized) {
		t.Fatalf("second Init err = %v, want ErrAlreadyInitialized", err)
	}
}

func TestCommit_NotInitialized(t *testing.T) {
	repo := openRepo(t, afero.NewMemMapFs())
	if _, err := repo.Commit(context.Background(), "x"); !errors.Is(err, hist.ErrNotInitialized) {
		t.Fatalf("Commit err = %v, want ErrNotInitialized", err)
	}
	if _, err := repo.Commits(); !errors.Is(err, hist.ErrNotInitialized) {
		t.Fatalf("Commits err = %v, want ErrNotInitialized", err)
	}
}

func TestCommit_IDAndDate(t *testing.T) {
	repo, fs := newRepo(t)
	writeFile(t, fs, "a", "1")
	res := commit(t, repo, "first")

	if !regexp.MustCompile(`^[A-Za-z0-9]{7}$`).MatchString(res.Commit.ID) {
		t.Errorf("commit id %q is not 7 alphanumerics", res.Commit.ID)
	}
	if _, err := time.Parse(hist.DateLayout, res.Commit.Date); err != nil {
		t.Errorf("commit date %q: %v", res.Commit.Date, err)
	}
	if res.Commit.Description != "first" {
		t.Errorf("description = %q", res.Commit.Description)
	}
}

func TestCommit_UnchangedContentKeepsIndex(t *testing.T) {
	repo, fs := newRepo(t)
	writeFile(t, fs, "x.txt", "same")
	commit(t, repo, "one")
	res := commit(t, repo, "two")

	if len(res.Changed) != 0 {
		t.Errorf("Changed = %v, want none", res.Changed)
	}
	index, err := repo.History("x.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(index) != 1 {
		t.Fatalf("index has %d entries, want 1", len(index))
	}
	commits, err := repo.Commits()
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 2 {
		t.Fatalf("log has %d commits, want 2", len(commits))
	}
}

func TestCommit_SameSizeDifferentContent(t *testing.T) {
	repo, fs := newRepo(t)
	writeFile(t, fs, "x.txt", "ab")
	commit(t, repo, "one")
	writeFile(t, fs, "x.txt", "ba")
	res := commit(t, repo, "two")

	if len(res.Changed) != 1 || res.Changed[0] != "x.txt" {
		t.Fatalf("Changed = %v, want [x.txt]", res.Changed)
	}
	if got := readFile(t, fs, ".history/x.txt/data.bin"); got != "abba" {
		t.Fatalf("blob = %q, want %q", got, "abba")
	}
}

func TestCommit_RevertAppendsAgain(t *testing.T) {
	repo, fs := newRepo(t)
	for _, content := range []string{"1", "2", "1"} {
		writeFile(t, fs, "x.txt", content)
		commit(t, repo, content)
	}
	index, err := repo.History("x.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(index) != 3 {
		t.Fatalf("index has %d entries, want 3", len(index))
	}
	if got := readFile(t, fs, ".history/x.txt/data.bin"); got != "121" {
		t.Fatalf("blob = %q, want %q", got, "121")
	}
}

func TestCommit_EmptyTreeStillRecorded(t *testing.T) {
	repo, _ := newRepo(t)
	res := commit(t, repo, "nothing")
	commits, err := repo.Commits()
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 1 || commits[0].ID != res.Commit.ID {
		t.Fatalf("commits = %+v", commits)
	}
}

func TestCommit_NestedAndIgnored(t *testing.T) {
	repo, fs := newRepo(t, hist.WithIgnore("build"))
	writeFile(t, fs, ".ignore", "# generated\nnode_modules\n*.log\n")
	writeFile(t, fs, "src/main.go", "package main")
	writeFile(t, fs, "node_modules/dep/index.js", "x")
	writeFile(t, fs, "build/out", "bin")
	writeFile(t, fs, "*.log", "literal name")

	res := commit(t, repo, "tree")
	want := map[string]bool{".ignore": true, "src/main.go": true}
	if len(res.Changed) != len(want) {
		t.Fatalf("Changed = %v, want %v", res.Changed, want)
	}
	for _, p := range res.Changed {
		if !want[p] {
			t.Errorf("unexpected tracked path %q", p)
		}
	}
	if !exists(t, fs, ".history/src%2Fmain.go/data.bin") {
		t.Error("nested file not stored under escaped key")
	}
}

func TestCommit_StreamingLeavesPartialWrites(t *testing.T) {
	repo, fs := newRepo(t)
	writeFile(t, fs, "a.txt", "a1")
	writeFile(t, fs, "b.txt", "b1")
	commit(t, repo, "one")

	writeFile(t, fs, "a.txt", "a2")
	writeFile(t, fs, "b.txt", "b2")
	writeFile(t, fs, ".history/b.txt/metadata.json", "{")

	if _, err := repo.Commit(context.Background(), "two"); !errors.Is(err, hist.ErrCorruptMetadata) {
		t.Fatalf("Commit err = %v, want ErrCorruptMetadata", err)
	}
	commits, _ := repo.Commits()
	if len(commits) != 2 {
		t.Fatalf("log has %d commits, want 2", len(commits))
	}
	index, _ := repo.History("a.txt")
	if len(index) != 2 {
		t.Fatalf("a.txt index has %d entries, want 2", len(index))
	}
}

func TestCommit_AtomicWritesNothingOnFailure(t *testing.T) {
	repo, fs := newRepo(t, hist.WithAtomicCommit(true))
	writeFile(t, fs, "a.txt", "a1")
	writeFile(t, fs, "b.txt", "b1")
	commit(t, repo, "one")

	writeFile(t, fs, "a.txt", "a2")
	writeFile(t, fs, "b.txt", "b2")
	writeFile(t, fs, ".history/b.txt/metadata.json", "{")

	if _, err := repo.Commit(context.Background(), "two"); !errors.Is(err, hist.ErrCorruptMetadata) {
		t.Fatalf("Commit err = %v, want ErrCorruptMetadata", err)
	}
	commits, _ := repo.Commits()
	if len(commits) != 1 {
		t.Fatalf("log has %d commits, want 1", len(commits))
	}
	index, _ := repo.History("a.txt")
	if len(index) != 1 {
		t.Fatalf("a.txt index has %d entries, want 1", len(index))
	}
	if got := readFile(t, fs, ".history/a.txt/data.bin"); got != "a1" {
		t.Fatalf("a.txt blob = %q, want %q", got, "a1")
	}
}

func TestCommit_AtomicSucceeds(t *testing.T) {
	repo, fs := newRepo(t, hist.WithAtomicCommit(true))
	writeFile(t, fs, "x.txt", "1")
	commit(t, repo, "a")
	writeFile(t, fs, "x.txt", "22")
	res := commit(t, repo, "b")

	if len(res.Changed) != 1 {
		t.Fatalf("Changed = %v", res.Changed)
	}
	if got := readFile(t, fs, ".history/x.txt/data.bin"); got != "122" {
		t.Fatalf("blob = %q, want %q", got, "122")
	}
}

func TestHistory(t *testing.T) {
	repo, fs := newRepo(t)
	if _, err := repo.History("missing.txt"); !errors.Is(err, hist.ErrNotYetTracked) {
		t.Fatalf("History(missing) err = %v, want ErrNotYetTracked", err)
	}
	if _, err := repo.History("../outside"); err == nil {
		t.Fatal("History(../outside) succeeded")
	}

	writeFile(t, fs, "docs/a.md", "x")
	commit(t, repo, "docs")
	for _, p := range []string{"docs/a.md", "./docs/a.md", "docs//a.md"} {
		if index, err := repo.History(p); err != nil || len(index) != 1 {
			t.Errorf("History(%q) = %v, %v", p, index, err)
		}
	}
}
