// Package cache implements the two-tier embedding cache of spec.md §4.2:
// an in-memory LRU (Tier 1) backed by an on-disk SQLite blob store
// (Tier 2), with single-flight miss collapsing so concurrent lookups for
// the same content hash trigger at most one embedder call.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// memTier is the Tier 1 in-memory LRU cache, key = content hash.
type memTier struct {
	lru *lru.Cache[string, []float32]
}

func newMemTier(capacity int) (*memTier, error) {
	if capacity <= 0 {
		capacity = 10_000
	}
	c, err := lru.New[string, []float32](capacity)
	if err != nil {
		return nil, err
	}
	return &memTier{lru: c}, nil
}

func (t *memTier) get(contentHash string) ([]float32, bool) {
	return t.lru.Get(contentHash)
}

func (t *memTier) put(contentHash string, vec []float32) {
	t.lru.Add(contentHash, vec)
}

func (t *memTier) len() int { return t.lru.Len() }
