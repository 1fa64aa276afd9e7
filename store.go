package hist

import (
	"context"

	"github.com/aweris/hist/internal/remote"
	"github.com/aweris/hist/internal/store"
)

// Commit is one entry of the commit log.
// Re-exported from internal/store for convenience.
type Commit = store.Commit

// Version is one entry of a file's version index.
type Version = store.Version

// Bucket is a flat remote object namespace.
// Re-exported from internal/remote for convenience.
type Bucket = remote.Bucket

// Authenticator provides credentials for OCI registries.
type Authenticator = remote.Authenticator

// SyncStrategy moves a store between the local tree and a bucket. Object
// keys are slash-separated paths starting with ".history/".
type SyncStrategy interface {
	Download(ctx context.Context, b Bucket) (map[string][]byte, error)
	Upload(ctx context.Context, b Bucket, objects map[string][]byte) error
}
