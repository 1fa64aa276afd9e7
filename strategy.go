package hist

import (
	"context"
	"fmt"
	"sync"

	"github.com/aweris/hist/internal/remote"
	"github.com/sourcegraph/conc/pool"
)

// FullMirror transfers the whole store on every sync. Upload clears the
// remote namespace before writing, or replaces it in one write when the
// bucket supports that.
type FullMirror struct {
	Concurrency int
}

func (m FullMirror) concurrency() int {
	if m.Concurrency > 0 {
		return m.Concurrency
	}
	return remote.DefaultConcurrency
}

// Download fetches every object of b in parallel.
func (m FullMirror) Download(ctx context.Context, b Bucket) (map[string][]byte, error) {
	keys, err := b.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list remote: %w", err)
	}

	var mu sync.Mutex
	objects := make(map[string][]byte, len(keys))

	p := pool.New().WithMaxGoroutines(m.concurrency()).WithContext(ctx).WithCancelOnError()
	for _, key := range keys {
		p.Go(func(ctx context.Context) error {
			data, err := b.Get(ctx, key)
			if err != nil {
				return fmt.Errorf("download %s: %w", key, err)
			}
			mu.Lock()
			objects[key] = data
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return objects, nil
}

// Upload replaces the namespace of b with objects.
func (m FullMirror) Upload(ctx context.Context, b Bucket, objects map[string][]byte) error {
	if mr, ok := b.(remote.Mirrorer); ok {
		if err := mr.Mirror(ctx, objects); err != nil {
			return fmt.Errorf("mirror: %w", err)
		}
		return nil
	}

	stale, err := b.List(ctx)
	if err != nil {
		return fmt.Errorf("list remote: %w", err)
	}
	if len(stale) > 0 {
		if err := b.Delete(ctx, stale...); err != nil {
			return fmt.Errorf("clear remote: %w", err)
		}
	}

	p := pool.New().WithMaxGoroutines(m.concurrency()).WithContext(ctx).WithCancelOnError()
	for key, data := range objects {
		p.Go(func(ctx context.Context) error {
			if err := b.Put(ctx, key, data); err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}
			return nil
		})
	}
	return p.Wait()
}
