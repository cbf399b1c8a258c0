package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/locatehq/locate/embed"
)

// Config controls the two-tier cache's capacities and backing embedder.
type Config struct {
	Embedder embed.Embedder
	MemCap   int // Tier 1 capacity, default 10_000.
	DiskCap  int // Tier 2 capacity, default 100_000.
	DiskPath string
	Logger   *slog.Logger

	// Workers bounds how many misses GetOrEmbed embeds concurrently.
	// Default 4.
	Workers int
}

func (c *Config) applyDefaults() {
	if c.MemCap <= 0 {
		c.MemCap = 10_000
	}
	if c.DiskCap <= 0 {
		c.DiskCap = 100_000
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Cache is the two-tier content-hash-keyed embedding cache. Reads are
// lock-free against the LRU's own synchronization; concurrent misses on
// the same content hash collapse into a single embedder call via
// singleflight.
type Cache struct {
	cfg  Config
	mem  *memTier
	disk *diskTier
	sf   singleflight.Group
}

// Open constructs a Cache backed by an on-disk SQLite vector store at
// cfg.DiskPath.
func Open(cfg Config) (*Cache, error) {
	cfg.applyDefaults()

	mem, err := newMemTier(cfg.MemCap)
	if err != nil {
		return nil, fmt.Errorf("cache: mem tier: %w", err)
	}

	disk, err := openDiskTier(cfg.DiskPath, cfg.DiskCap)
	if err != nil {
		return nil, fmt.Errorf("cache: disk tier: %w", err)
	}

	return &Cache{cfg: cfg, mem: mem, disk: disk}, nil
}

// Close releases the disk tier's handle.
func (c *Cache) Close() error { return c.disk.close() }

// Result pairs a vector with whether it was produced by the deterministic
// fallback embedder (spec.md §4.2's degraded flag).
type Result struct {
	Vector   []float32
	Degraded bool
}

// GetOrEmbed partitions contentHash->text into cache hits and misses,
// embeds exactly the misses through a worker pool bounded by
// cfg.Workers, and returns a vector for every input. A single snapshot
// of N elements where the page changed by δ elements incurs exactly δ
// embedder calls, spread across at most cfg.Workers concurrent ones.
func (c *Cache) GetOrEmbed(ctx context.Context, byHash map[string]string) (map[string]Result, error) {
	out := make(map[string]Result, len(byHash))
	var miss []string

	for hash := range byHash {
		if vec, ok := c.mem.get(hash); ok {
			out[hash] = Result{Vector: vec}
			continue
		}
		if vec, ok, err := c.disk.get(hash); err != nil {
			return nil, err
		} else if ok {
			c.mem.put(hash, vec)
			out[hash] = Result{Vector: vec}
			continue
		}
		miss = append(miss, hash)
	}

	results, err := c.embedMissing(ctx, miss, byHash)
	if err != nil {
		return nil, err
	}
	for hash, result := range results {
		out[hash] = result
	}

	return out, nil
}

// embedMissing dispatches miss through a worker pool holding at most
// cfg.Workers outstanding embedder calls at once, grounded on the
// semaphore-channel pattern of a bounded background-worker embedder.
func (c *Cache) embedMissing(ctx context.Context, miss []string, byHash map[string]string) (map[string]Result, error) {
	out := make(map[string]Result, len(miss))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	sem := make(chan struct{}, c.cfg.Workers)
	for _, hash := range miss {
		wg.Add(1)
		sem <- struct{}{}
		go func(hash string) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := c.embedOne(ctx, hash, byHash[hash])

			mu.Lock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
			} else {
				out[hash] = result
			}
			mu.Unlock()
		}(hash)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// embedOne embeds a single missed content hash, collapsing concurrent
// requests for the same hash into one embedder call. Per spec.md §4.2,
// embedding failure for one element never fails the batch: the offending
// element is assigned the deterministic fallback and tagged degraded.
func (c *Cache) embedOne(ctx context.Context, hash, text string) (Result, error) {
	v, err, _ := c.sf.Do(hash, func() (any, error) {
		// A flight for hash may have finished after the caller's tier
		// check; reuse its vector rather than embedding again.
		if vec, ok := c.mem.get(hash); ok {
			return Result{Vector: vec}, nil
		}
		vec, embErr := c.cfg.Embedder.Embed(ctx, text)
		degraded := false
		if embErr != nil {
			c.cfg.Logger.Warn("cache: embedder failed, using fallback", "content_hash", hash, "error", embErr)
			vec = embed.Fallback(text, c.cfg.Embedder.Dimension())
			degraded = true
		}

		c.mem.put(hash, vec)
		if putErr := c.disk.put(hash, vec, degraded); putErr != nil {
			c.cfg.Logger.Warn("cache: disk tier write failed", "content_hash", hash, "error", putErr)
		}

		return Result{Vector: vec, Degraded: degraded}, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// Stats reports cache occupancy for the introspection HTTP surface.
type Stats struct {
	MemEntries int `json:"mem_entries"`
	MemCap     int `json:"mem_cap"`
	DiskCap    int `json:"disk_cap"`
}

func (c *Cache) Stats() Stats {
	return Stats{MemEntries: c.mem.len(), MemCap: c.cfg.MemCap, DiskCap: c.cfg.DiskCap}
}
