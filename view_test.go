package hist_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aweris/hist"
	"github.com/spf13/afero"
)

func TestView_NotInitialized(t *testing.T) {
	repo := openRepo(t, afero.NewMemMapFs())
	if err := repo.View(context.Background(), "abc1234"); !errors.Is(err, hist.ErrNotInitialized) {
		t.Fatalf("View err = %v, want ErrNotInitialized", err)
	}
}

func TestView_RestoresNestedAndRemovesUntracked(t *testing.T) {
	repo, fs := newRepo(t)
	writeFile(t, fs, "docs/guide.md", "guide v1")
	writeFile(t, fs, "main.go", "package main")
	first := commit(t, repo, "first")

	writeFile(t, fs, "scratch.txt", "never committed")
	if err := fs.RemoveAll("docs"); err != nil {
		t.Fatal(err)
	}

	if err := repo.View(context.Background(), first.Commit.ID); err != nil {
		t.Fatalf("View: %v", err)
	}
	if got := readFile(t, fs, "docs/guide.md"); got != "guide v1" {
		t.Errorf("docs/guide.md = %q", got)
	}
	if got := readFile(t, fs, "main.go"); got != "package main" {
		t.Errorf("main.go = %q", got)
	}
	if exists(t, fs, "scratch.txt") {
		t.Error("untracked file survived view")
	}
}

func TestView_KeepsIgnoredFiles(t *testing.T) {
	repo, fs := newRepo(t, hist.WithIgnore("local.env"))
	writeFile(t, fs, "app.txt", "v1")
	first := commit(t, repo, "first")

	writeFile(t, fs, "local.env", "SECRET=1")
	if err := repo.View(context.Background(), first.Commit.ID); err != nil {
		t.Fatalf("View: %v", err)
	}
	if got := readFile(t, fs, "local.env"); got != "SECRET=1" {
		t.Errorf("ignored file changed: %q", got)
	}
}

func TestView_BestEffortFallsBackToLatest(t *testing.T) {
	repo, fs := newRepo(t)
	writeFile(t, fs, "x.txt", "1")
	a := commit(t, repo, "a")

	writeFile(t, fs, "y.txt", "later")
	commit(t, repo, "b")

	if err := repo.View(context.Background(), a.Commit.ID); err != nil {
		t.Fatalf("View: %v", err)
	}
	if got := readFile(t, fs, "x.txt"); got != "1" {
		t.Errorf("x.txt = %q", got)
	}
	// y.txt has no version for a, so its latest version is restored.
	if got := readFile(t, fs, "y.txt"); got != "later" {
		t.Errorf("y.txt = %q, want %q", got, "later")
	}
}

func TestView_BestEffortUnknownCommit(t *testing.T) {
	repo, fs := newRepo(t)
	writeFile(t, fs, "x.txt", "1")
	commit(t, repo, "a")
	writeFile(t, fs, "x.txt", "22")
	commit(t, repo, "b")

	if err := repo.View(context.Background(), "nope123"); err != nil {
		t.Fatalf("View: %v", err)
	}
	if got := readFile(t, fs, "x.txt"); got != "22" {
		t.Errorf("x.txt = %q, want latest", got)
	}
}

func TestView_Strict(t *testing.T) {
	repo, fs := newRepo(t, hist.WithViewPolicy(hist.ViewStrict))
	writeFile(t, fs, "x.txt", "1")
	a := commit(t, repo, "a")

	writeFile(t, fs, "y.txt", "later")
	commit(t, repo, "b")

	// x.txt unchanged in c, so c has no entry for it.
	writeFile(t, fs, "y.txt", "later still")
	c := commit(t, repo, "c")

	writeFile(t, fs, "x.txt", "333")
	commit(t, repo, "d")

	if err := repo.View(context.Background(), a.Commit.ID); err != nil {
		t.Fatalf("View(a): %v", err)
	}
	if got := readFile(t, fs, "x.txt"); got != "1" {
		t.Errorf("x.txt at a = %q", got)
	}
	if exists(t, fs, "y.txt") {
		t.Error("y.txt restored at a, before it was first committed")
	}

	if err := repo.View(context.Background(), c.Commit.ID); err != nil {
		t.Fatalf("View(c): %v", err)
	}
	if got := readFile(t, fs, "x.txt"); got != "1" {
		t.Errorf("x.txt at c = %q, want %q", got, "1")
	}
	if got := readFile(t, fs, "y.txt"); got != "later still" {
		t.Errorf("y.txt at c = %q", got)
	}
}

func TestView_StrictUnknownCommitTouchesNothing(t *testing.T) {
	repo, fs := newRepo(t, hist.WithViewPolicy(hist.ViewStrict))
	writeFile(t, fs, "x.txt", "1")
	commit(t, repo, "a")
	writeFile(t, fs, "x.txt", "dirty")

	if err := repo.View(context.Background(), "nope123"); !errors.Is(err, hist.ErrCommitNotFound) {
		t.Fatalf("View err = %v, want ErrCommitNotFound", err)
	}
	if got := readFile(t, fs, "x.txt"); got != "dirty" {
		t.Errorf("working tree modified: x.txt = %q", got)
	}
}

func TestView_TruncatedBlob(t *testing.T) {
	repo, fs := newRepo(t)
	writeFile(t, fs, "x.txt", "1")
	commit(t, repo, "a")
	writeFile(t, fs, "x.txt", "22")
	b := commit(t, repo, "b")

	writeFile(t, fs, ".history/x.txt/data.bin", "12")
	if err := repo.View(context.Background(), b.Commit.ID); !errors.Is(err, hist.ErrTruncatedBlob) {
		t.Fatalf("View err = %v, want ErrTruncatedBlob", err)
	}
}

func TestView_OversizedIndexKeepsWorkingTree(t *testing.T) {
	for _, size := range []string{"9000000000000000000", "5"} {
		t.Run(size, func(t *testing.T) {
			repo, fs := newRepo(t)
			writeFile(t, fs, "x.txt", "1")
			writeFile(t, fs, "y.txt", "y")
			a := commit(t, repo, "a")

			writeFile(t, fs, ".history/x.txt/metadata.json",
				`[{"date":"d","description":"a","commit_id":"`+a.Commit.ID+`","pointer_to_data":0,"size":`+size+`}]`)
			writeFile(t, fs, "scratch.txt", "keep me")

			if err := repo.View(context.Background(), a.Commit.ID); !errors.Is(err, hist.ErrTruncatedBlob) {
				t.Fatalf("View err = %v, want ErrTruncatedBlob", err)
			}
			for name, want := range map[string]string{"x.txt": "1", "y.txt": "y", "scratch.txt": "keep me"} {
				if got := readFile(t, fs, name); got != want {
					t.Errorf("%s = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestView_ManyFiles(t *testing.T) {
	repo, fs := newRepo(t, hist.WithConcurrency(3))
	want := make(map[string]string)
	for i := range 40 {
		name := fmt.Sprintf("dir%d/file%02d.txt", i%4, i)
		want[name] = name + " content"
		writeFile(t, fs, name, want[name])
	}
	res := commit(t, repo, "bulk")
	if len(res.Changed) != len(want) {
		t.Fatalf("Changed %d files, want %d", len(res.Changed), len(want))
	}

	if err := repo.View(context.Background(), res.Commit.ID); err != nil {
		t.Fatalf("View: %v", err)
	}
	for name, content := range want {
		if got := readFile(t, fs, name); got != content {
			t.Errorf("%s = %q", name, got)
		}
	}
}
