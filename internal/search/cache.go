package search

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wigg/wigg/internal/search/types"
)

// Cache is an in-memory TTL cache for resolved searches, keyed by the full
// resolution-relevant input (normalized query, market, locale, budget,
// profile). Rapid re-searches of the same text reuse the previous resolution
// instead of re-fanning out to providers.
type Cache struct {
	mu       sync.RWMutex
	items    map[string]cacheItem
	ttl      time.Duration
	maxItems int
	stop     chan struct{}
	stopOnce sync.Once
}

type cacheItem struct {
	value     types.ResolvedSearch
	expiresAt time.Time
}

// CacheConfig holds cache tuning knobs.
type CacheConfig struct {
	TTL      time.Duration
	MaxItems int
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:      5 * time.Minute,
		MaxItems: 500,
	}
}

// NewCache creates a cache and starts its background expiry sweep.
func NewCache(cfg CacheConfig) *Cache {
	if cfg.TTL == 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MaxItems == 0 {
		cfg.MaxItems = 500
	}

	c := &Cache{
		items:    make(map[string]cacheItem),
		ttl:      cfg.TTL,
		maxItems: cfg.MaxItems,
		stop:     make(chan struct{}),
	}
	go c.sweep()
	return c
}

// CacheKey derives the cache key for a validated input. Every field that
// influences planning or scoring is folded in, so two inputs share an entry
// only when they would resolve identically.
func CacheKey(input types.SearchInput) string {
	parts := []string{
		NormalizeQuery(input.Query),
		input.Market,
		input.Locale,
		strconv.Itoa(input.Budget.MaxProviders),
		strconv.FormatBool(input.Budget.FallbacksAllowed()),
	}
	if input.Profile != nil {
		parts = append(parts,
			string(input.Profile.LastVertical),
			strconv.FormatBool(input.Profile.NSFW))
	}
	return strings.Join(parts, "|")
}

// Get returns a cached resolution if present and unexpired.
func (c *Cache) Get(key string) (types.ResolvedSearch, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok || time.Now().After(item.expiresAt) {
		return types.ResolvedSearch{}, false
	}
	return item.value, true
}

// Set stores a resolution, evicting the soonest-to-expire entry at capacity.
func (c *Cache) Set(key string, value types.ResolvedSearch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.maxItems {
		c.evictOldest()
	}
	c.items[key] = cacheItem{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]cacheItem)
}

// Close stops the background sweep.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, item := range c.items {
		if oldestKey == "" || item.expiresAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
