// Package cache holds process local metadata. Entries are whole collections
// replaced on reload, never patched in place.
package cache

import (
	"time"
)

// Cache defines the interface for metadata cache backends
type Cache interface {
	// Get retrieves a value. A disabled cache always misses.
	Get(key string) (interface{}, bool)

	// Set stores a value, replacing any previous one
	Set(key string, value interface{})

	// Del removes a value
	Del(key string)

	// Keys returns the stored keys from oldest to newest use
	Keys() []string

	// Purge removes all values
	Purge()
}

// Config holds configuration for cache backends
type Config struct {
	// Enabled switches the cache on. Disabled caches miss on every Get.
	Enabled bool
	// Size bounds the number of entries
	Size int
	// Prefix is prepended to all cache keys
	Prefix string
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Size:    1024,
	}
}

// Entry is a stored value with its insertion time
type Entry struct {
	Value    interface{}
	Inserted time.Time
}
