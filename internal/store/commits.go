package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// Commit is one entry of the root commit log.
type Commit struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	ID          string `json:"commit_id"`
}

// CommitLog is the repository-wide ordered list of commits. Insertion order
// is chronological order; entries are never rewritten or removed.
type CommitLog struct {
	fs   afero.Fs
	path string
}

func (l *CommitLog) init() error {
	return writeFileAtomic(l.fs, l.path, []byte("[]"), 0644)
}

// List returns every commit in append order.
func (l *CommitLog) List() ([]Commit, error) {
	data, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrUninitialized
		}
		return nil, fmt.Errorf("read commit log: %w", err)
	}
	return DecodeCommits(data)
}

// Append adds c to the end of the log and rewrites it atomically.
func (l *CommitLog) Append(c Commit) error {
	commits, err := l.List()
	if err != nil {
		return err
	}
	commits = append(commits, c)

	data, err := json.Marshal(commits)
	if err != nil {
		return fmt.Errorf("encode commit log: %w", err)
	}
	if err := writeFileAtomic(l.fs, l.path, data, 0644); err != nil {
		return fmt.Errorf("write commit log: %w", err)
	}
	return nil
}

// Find returns the commit with the given id.
func (l *CommitLog) Find(id string) (Commit, bool, error) {
	commits, err := l.List()
	if err != nil {
		return Commit{}, false, err
	}
	c, ok := FindCommit(commits, id)
	return c, ok, nil
}

// Latest returns the most recently appended commit.
func (l *CommitLog) Latest() (Commit, bool, error) {
	commits, err := l.List()
	if err != nil || len(commits) == 0 {
		return Commit{}, false, err
	}
	return commits[len(commits)-1], true, nil
}

// DecodeCommits parses an encoded commit log.
func DecodeCommits(data []byte) ([]Commit, error) {
	var commits []Commit
	if err := json.Unmarshal(data, &commits); err != nil {
		return nil, fmt.Errorf("%w: commit log: %v", ErrCorruptMetadata, err)
	}
	return commits, nil
}

// FindCommit scans commits for id. Commit counts are small, so a linear
// scan is enough.
func FindCommit(commits []Commit, id string) (Commit, bool) {
	if i := IndexOf(commits, id); i >= 0 {
		return commits[i], true
	}
	return Commit{}, false
}

// IndexOf returns the position of id in commits, or -1.
func IndexOf(commits []Commit, id string) int {
	for i, c := range commits {
		if c.ID == id {
			return i
		}
	}
	return -1
}
