// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mapping

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FetchFunc retrieves the current mapping from the host. It may return
// a nil mapping when the host has none.
type FetchFunc func(ctx context.Context) (ColumnMapping, error)

// Cache holds the most recently fetched mapping. At most one fetch is
// in flight at a time; every caller that arrives while it runs receives
// its result.
type Cache struct {
	fetch  FetchFunc
	logger *slog.Logger
	group  singleflight.Group

	mu      sync.Mutex
	fetched bool
	current ColumnMapping
}

// NewCache creates an empty cache. A nil logger uses slog.Default().
func NewCache(fetch FetchFunc, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{fetch: fetch, logger: logger}
}

const refreshKey = "mappings"

// RefreshIfNeeded returns the cached mapping, fetching it first when it
// has never been fetched or the caller knows it changed.
//
// The fetch itself is detached from ctx: a caller that gives up does
// not fail the other waiters. The returned mapping is a copy the
// caller may modify.
func (c *Cache) RefreshIfNeeded(ctx context.Context, changed bool) (ColumnMapping, error) {
	c.mu.Lock()
	if c.fetched && !changed {
		current := c.current.Clone()
		c.mu.Unlock()
		return current, nil
	}
	c.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	results := c.group.DoChan(refreshKey, func() (any, error) {
		mapping, err := c.fetch(detached)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.current = mapping
		c.fetched = true
		c.mu.Unlock()
		c.logger.Debug("column mapping refreshed", "fields", len(mapping))
		return mapping, nil
	})

	select {
	case result := <-results:
		if result.Err != nil {
			return nil, result.Err
		}
		mapping, _ := result.Val.(ColumnMapping)
		return mapping.Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Current returns the cached mapping without fetching, and whether a
// fetch has ever completed.
func (c *Cache) Current() (ColumnMapping, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Clone(), c.fetched
}
