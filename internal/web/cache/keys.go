package cache

import (
	"strings"
)

// Key builds a composite cache key from a collection name and optional sub
// keys. Empty parts are skipped.
func Key(collection string, sub ...string) string {
	parts := make([]string, 0, len(sub)+1)
	parts = append(parts, collection)
	for _, s := range sub {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ":")
}
