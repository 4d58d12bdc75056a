// Package cache keeps resolved tiles in memory. It is bounded in size and makes sure a
// tile is fetched at most once at a time, whatever the number of concurrent callers.
package cache

import (
	"context"
	"fmt"
	"image"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/pdok/wmtstiles/logging"
	"github.com/pdok/wmtstiles/metrics"
	"github.com/pdok/wmtstiles/tile"
)

const DefaultSize = 150

// Entry is a tile with what has been memoized for it so far. Entries are values and never
// change once stored; updates store a new entry.
type Entry struct {
	Tile   tile.Tile
	URL    string
	Image  image.Image
	Format string
}

func (e Entry) Resolved() bool {
	return e.Image != nil
}

// FetchFunc completes base, which holds at least the tile and possibly a memoized URL,
// with the image.
type FetchFunc func(ctx context.Context, base Entry) (Entry, error)

type Cache struct {
	entries *lru.Cache[string, Entry]
	group   singleflight.Group
	mu      sync.Mutex // serializes read-modify-write of entries
	logger  logging.Logger
}

func New(size int, logger logging.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = logging.Nop()
	}
	entries, err := lru.NewWithEvict[string, Entry](size, func(key string, _ Entry) {
		metrics.TilesCacheEvictions.Inc()
		logger.Debug("tile evicted", "key", key)
	})
	if err != nil {
		return nil, fmt.Errorf("creating tile cache: %w", err)
	}
	return &Cache{entries: entries, logger: logger}, nil
}

func (c *Cache) Get(t tile.Identifier) (Entry, bool) {
	return c.entries.Get(t.CacheKey())
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) Purge() {
	c.entries.Purge()
}

// update applies fn to the stored entry for t, or to a fresh entry when none is stored.
func (c *Cache) update(t tile.Tile, fn func(Entry) Entry) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := t.ID.CacheKey()
	e, ok := c.entries.Peek(key)
	if !ok {
		e = Entry{Tile: t}
	}
	e = fn(e)
	c.entries.Add(key, e)
	return e
}

// URL returns the memoized URL of t, building and storing it on first use.
func (c *Cache) URL(t tile.Tile, build func(tile.Tile) (string, error)) (string, error) {
	if e, ok := c.entries.Get(t.ID.CacheKey()); ok && e.URL != "" {
		return e.URL, nil
	}
	u, err := build(t)
	if err != nil {
		return "", err
	}
	c.update(t, func(e Entry) Entry {
		if e.URL == "" {
			e.URL = u
		}
		return e
	})
	return u, nil
}

// Resolve returns the entry of t with its image, fetching it on a miss. Concurrent misses
// for the same tile share one fetch. The fetch is not cancelled with ctx: a caller that
// gives up stops waiting while the fetch completes and fills the cache.
func (c *Cache) Resolve(ctx context.Context, t tile.Tile, fetch FetchFunc) (Entry, error) {
	metrics.TilesRequests.Inc()
	key := t.ID.CacheKey()
	if e, ok := c.entries.Get(key); ok && e.Resolved() {
		metrics.TilesCacheHits.Inc()
		return e, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		base, ok := c.entries.Peek(key)
		if ok && base.Resolved() {
			return base, nil
		}
		if !ok {
			base = Entry{Tile: t}
		}
		metrics.TilesCacheMisses.Inc()
		fetched, err := fetch(context.WithoutCancel(ctx), base)
		if err != nil {
			return nil, err
		}
		return c.update(t, func(e Entry) Entry {
			if fetched.URL == "" {
				fetched.URL = e.URL
			}
			fetched.Tile = e.Tile
			return fetched
		}), nil
	})

	select {
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Entry{}, res.Err
		}
		return res.Val.(Entry), nil
	}
}
