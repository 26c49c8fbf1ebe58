package cache

import (
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// LRUCache implements a bounded in-memory cache with least recently used
// eviction and no expiry
type LRUCache struct {
	store  *lru.Cache
	config Config
	log    *zap.SugaredLogger
	now    func() time.Time
}

// NewLRUCache creates a new LRU cache
func NewLRUCache(config Config, log *zap.SugaredLogger) (*LRUCache, error) {
	size := config.Size
	if size <= 0 {
		size = DefaultConfig().Size
	}
	store, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUCache{
		store:  store,
		config: config,
		log:    log,
		now:    time.Now,
	}, nil
}

// Enabled reports whether the cache serves reads
func (c *LRUCache) Enabled() bool {
	return c.config.Enabled
}

// Get retrieves a value from the cache
func (c *LRUCache) Get(key string) (interface{}, bool) {
	e, ok := c.Entry(key)
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Entry retrieves a value with its insertion time
func (c *LRUCache) Entry(key string) (Entry, bool) {
	if !c.config.Enabled {
		return Entry{}, false
	}
	v, ok := c.store.Get(c.config.Prefix + key)
	if !ok {
		return Entry{}, false
	}
	return v.(Entry), true
}

// Set stores a value in the cache
func (c *LRUCache) Set(key string, value interface{}) {
	if !c.config.Enabled {
		return
	}
	evicted := c.store.Add(c.config.Prefix+key, Entry{Value: value, Inserted: c.now()})
	c.log.Debugw("cache set", "key", key, "evicted", evicted)
}

// Del removes a value from the cache
func (c *LRUCache) Del(key string) {
	c.store.Remove(c.config.Prefix + key)
	c.log.Debugw("cache del", "key", key)
}

// Keys returns the stored keys without prefix, oldest first
func (c *LRUCache) Keys() []string {
	raw := c.store.Keys()
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		out = append(out, strings.TrimPrefix(k.(string), c.config.Prefix))
	}
	return out
}

// Len returns the number of entries
func (c *LRUCache) Len() int {
	return c.store.Len()
}

// Purge removes all values from the cache
func (c *LRUCache) Purge() {
	c.store.Purge()
	c.log.Debugw("cache purge")
}
