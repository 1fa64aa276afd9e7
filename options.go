package hist

import (
	"context"
	"fmt"
	"os"

	"github.com/aweris/hist/internal/remote"
	"github.com/sirupsen/logrus"
)

// ViewPolicy decides which version of a file View restores when the file
// has no entry for the requested commit.
type ViewPolicy int

const (
	// ViewBestEffort restores the file's latest version.
	ViewBestEffort ViewPolicy = iota
	// ViewStrict restores the last version recorded at or before the
	// requested commit and skips files first seen after it. The commit
	// must exist in the commit log.
	ViewStrict
)

func (p ViewPolicy) String() string {
	switch p {
	case ViewStrict:
		return "strict"
	default:
		return "best-effort"
	}
}

// ParseViewPolicy parses "best-effort" or "strict".
func ParseViewPolicy(s string) (ViewPolicy, error) {
	switch s {
	case "", "best-effort":
		return ViewBestEffort, nil
	case "strict":
		return ViewStrict, nil
	default:
		return ViewBestEffort, fmt.Errorf("unknown view policy %q", s)
	}
}

// BucketOpener resolves a remote identifier to a bucket.
type BucketOpener func(ctx context.Context, identifier string) (Bucket, error)

// Options configures a Repository.
type Options struct {
	Logger       logrus.FieldLogger
	Concurrency  int
	Ignore       []string
	ViewPolicy   ViewPolicy
	AtomicCommit bool
	SyncStrategy SyncStrategy
	OpenBucket   BucketOpener
	RemoteConfig remote.Config
}

// Option is a functional option for configuring Open.
type Option func(*Options)

func defaultOptions() *Options {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)

	return &Options{
		Logger:      logger,
		Concurrency: remote.DefaultConcurrency,
		ViewPolicy:  ViewBestEffort,
	}
}

// WithLogger sets the logger used for progress and warnings.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithConcurrency sets the number of parallel file and object operations.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithIgnore adds names to ignore on top of the working tree's .ignore file.
func WithIgnore(names ...string) Option {
	return func(o *Options) { o.Ignore = append(o.Ignore, names...) }
}

// WithViewPolicy selects how View picks versions for commits a file lacks.
func WithViewPolicy(p ViewPolicy) Option {
	return func(o *Options) { o.ViewPolicy = p }
}

// WithAtomicCommit stages every change before writing anything, so a failed
// read leaves the store untouched.
func WithAtomicCommit(enabled bool) Option {
	return func(o *Options) { o.AtomicCommit = enabled }
}

// WithSyncStrategy replaces the default FullMirror strategy.
func WithSyncStrategy(s SyncStrategy) Option {
	return func(o *Options) { o.SyncStrategy = s }
}

// WithBucketOpener overrides how remote identifiers are resolved.
func WithBucketOpener(fn BucketOpener) Option {
	return func(o *Options) { o.OpenBucket = fn }
}

// WithRemoteConfig sets backend settings for the default bucket opener.
func WithRemoteConfig(cfg remote.Config) Option {
	return func(o *Options) { o.RemoteConfig = cfg }
}

func (o *Options) complete() {
	if o.SyncStrategy == nil {
		o.SyncStrategy = FullMirror{Concurrency: o.Concurrency}
	}
	if o.RemoteConfig.Concurrency <= 0 {
		o.RemoteConfig.Concurrency = o.Concurrency
	}
	if o.OpenBucket == nil {
		cfg := o.RemoteConfig
		o.OpenBucket = func(ctx context.Context, identifier string) (Bucket, error) {
			return remote.Open(ctx, identifier, cfg)
		}
	}
}
