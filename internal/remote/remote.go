// Package remote implements the remote blob stores a history store is
// mirrored to.
//
// A remote is a flat key/value namespace. Keys mirror the local store's
// relative paths (".history/commits.json", ".history/<key>/data.bin", ...).
// Three backends are provided:
//   - S3 buckets ("s3://bucket/prefix" or a bare bucket name)
//   - OCI registries ("oci://registry/repo:tag"), the namespace packed into a
//     single zstd layer
//   - directories ("file:///path"), mainly for tests and local mirrors
//
// Operations are never retried: the first failure is returned to the caller.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aweris/hist/internal/compression"
	"github.com/spf13/afero"
)

const DefaultConcurrency = 4

var ErrObjectNotFound = errors.New("remote: object not found")

// Bucket is a flat object namespace.
type Bucket interface {
	// List returns every key in the namespace.
	List(ctx context.Context) ([]string, error)

	// Get returns the object stored under key, or ErrObjectNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data under key, replacing any previous object.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Mirrorer is implemented by buckets that can replace their whole namespace
// in one write.
type Mirrorer interface {
	Mirror(ctx context.Context, objects map[string][]byte) error
}

// Config carries backend settings.
type Config struct {
	S3Region    string
	S3Endpoint  string
	Auth        Authenticator
	Compression compression.Level
	Concurrency int

	// FS backs file:// buckets. Defaults to the OS filesystem.
	FS afero.Fs
}

// Open returns the bucket named by identifier.
func Open(ctx context.Context, identifier string, cfg Config) (Bucket, error) {
	if identifier == "" {
		return nil, errors.New("remote: empty identifier")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	scheme, rest, ok := strings.Cut(identifier, "://")
	if !ok {
		// A bare name is an S3 bucket.
		return NewS3Bucket(ctx, identifier, "", cfg)
	}

	switch scheme {
	case "s3":
		bucket, prefix, _ := strings.Cut(rest, "/")
		return NewS3Bucket(ctx, bucket, prefix, cfg)
	case "oci":
		return NewOCIBucket(rest, cfg)
	case "file":
		fs := cfg.FS
		if fs == nil {
			fs = afero.NewOsFs()
		}
		return NewFSBucket(fs, rest), nil
	default:
		return nil, fmt.Errorf("remote: unsupported scheme %q in %q", scheme, identifier)
	}
}
