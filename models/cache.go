// SPDX-License-Identifier: EPL-2.0

package models

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// entry holds one kind's bundle. ready is published after bundle is set,
// so a reader that sees ready == true may read bundle without the lock.
type entry struct {
	mtx    sync.Mutex
	ready  atomic.Bool
	bundle Bundle
}

// Cache loads each Kind at most once and hands the same Bundle to every
// caller. It is safe for concurrent use.
type Cache struct {
	loader  Loader
	log     *zap.Logger
	entries map[Kind]*entry
	closed  atomic.Bool
}

type CacheOption func(*Cache)

// WithLogger sets the logger for load events. The default discards.
func WithLogger(log *zap.Logger) CacheOption {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

func NewCache(loader Loader, opts ...CacheOption) *Cache {
	c := &Cache{
		loader:  loader,
		log:     zap.NewNop(),
		entries: make(map[Kind]*entry, len(Kinds())),
	}
	for _, k := range Kinds() {
		c.entries[k] = &entry{}
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetOrLoad returns the bundle for kind, loading it on first use.
//
// Concurrent first callers wait on a single load. A failed load is not
// remembered and the next call tries again. The loader does not see the
// caller's cancellation, because the bundle outlives the request that
// triggered it.
func (c *Cache) GetOrLoad(ctx context.Context, kind Kind) (Bundle, error) {
	e, ok := c.entries[kind]
	if !ok {
		return nil, &LoadError{Kind: kind, Err: ErrUnknownKind}
	}
	if c.closed.Load() {
		return nil, &LoadError{Kind: kind, Err: ErrCacheClosed}
	}

	if e.ready.Load() {
		return e.bundle, nil
	}

	e.mtx.Lock()
	defer e.mtx.Unlock()

	// Close may have swept this entry while we waited for the lock.
	if c.closed.Load() {
		return nil, &LoadError{Kind: kind, Err: ErrCacheClosed}
	}
	if e.ready.Load() {
		return e.bundle, nil
	}

	start := time.Now()
	c.log.Info("loading model bundle", zap.Stringer("kind", kind))

	b, err := c.loader.Load(context.WithoutCancel(ctx), kind)
	if err == nil && b == nil {
		err = fmt.Errorf("loader returned no bundle")
	}
	if err != nil {
		c.log.Warn("model bundle load failed",
			zap.Stringer("kind", kind),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, &LoadError{Kind: kind, Err: err}
	}

	e.bundle = b
	e.ready.Store(true)

	c.log.Info("model bundle ready",
		zap.Stringer("kind", kind),
		zap.Duration("elapsed", time.Since(start)),
	)

	return b, nil
}

// Loaded reports whether kind has been loaded successfully.
func (c *Cache) Loaded(kind Kind) bool {
	e, ok := c.entries[kind]
	return ok && e.ready.Load()
}

// Warm loads the given kinds concurrently, or every kind when none are
// given. It returns the first load error; the other loads still finish.
func (c *Cache) Warm(ctx context.Context, kinds ...Kind) error {
	if len(kinds) == 0 {
		kinds = Kinds()
	}

	var g errgroup.Group
	for _, k := range kinds {
		g.Go(func() error {
			_, err := c.GetOrLoad(ctx, k)
			return err
		})
	}

	return g.Wait()
}

// Close releases every loaded bundle that implements io.Closer. Later
// GetOrLoad calls fail with ErrCacheClosed.
func (c *Cache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	var err error
	for _, k := range Kinds() {
		e := c.entries[k]

		e.mtx.Lock()
		if e.ready.Load() {
			if cl, ok := e.bundle.(io.Closer); ok {
				if cerr := cl.Close(); cerr != nil {
					err = multierr.Append(err, fmt.Errorf("closing %s bundle: %w", k, cerr))
				}
			}
		}
		e.mtx.Unlock()
	}

	return err
}
