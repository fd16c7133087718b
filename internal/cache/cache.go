// Package cache stores assistant responses keyed by the query that
// produced them, so repeated questions are answered without a round trip
// to the agent. The whole cache persists as one JSON blob through the KV
// adapter; a blob that fails to load is discarded and the cache starts
// empty.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"fitcoach/internal/logging"
	"fitcoach/internal/storage"
)

// KeyResponseCache is the persistence key for the cache blob.
const KeyResponseCache = "response_cache"

// Cache is a query-keyed response cache.
type Cache struct {
	kv storage.KV

	mu      sync.RWMutex
	entries map[string]string
	loaded  bool
}

// New returns a cache over the given KV store; call Initialize before use.
func New(kv storage.KV) *Cache {
	return &Cache{kv: kv, entries: make(map[string]string)}
}

// Initialize loads the persisted cache on first call. Missing or corrupt
// blobs leave the cache empty; loading never fails the caller.
func (c *Cache) Initialize(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}
	c.loaded = true

	raw, ok, err := c.kv.Get(ctx, KeyResponseCache)
	if err != nil || !ok {
		if err != nil {
			logging.Get(logging.CategoryCache).Warn("Failed to load response cache: %v", err)
		}
		return
	}
	var entries map[string]string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		logging.Get(logging.CategoryCache).Warn("Corrupt response cache, starting empty: %v", err)
		return
	}
	c.entries = entries
	logging.CacheDebug("Loaded response cache with %d entries", len(entries))
}

// cacheKey hashes the normalized query.
func cacheKey(query string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for a query, if present.
func (c *Cache) Get(query string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	response, ok := c.entries[cacheKey(query)]
	return response, ok
}

// Set caches a response and persists the cache immediately.
func (c *Cache) Set(ctx context.Context, query, response string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(query)] = response
	return c.persist(ctx)
}

// Clear drops every cached response and persists the empty cache.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
	return c.persist(ctx)
}

// Size returns the number of cached responses.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// persist assumes c.mu is held.
func (c *Cache) persist(ctx context.Context) error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("failed to marshal response cache: %w", err)
	}
	return c.kv.Set(ctx, KeyResponseCache, string(data))
}
