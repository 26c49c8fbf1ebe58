package signal

import (
	"context"
)

// KeyUpdateCache asks a peer to reload one metadata collection
const KeyUpdateCache = "update.cache"

// Reloader reloads metadata collections into the cache
type Reloader interface {
	Reload(ctx context.Context, collection string) error
	LoadAll(ctx context.Context) error
}

// UpdateCache returns the built-in update.cache listener. The collection is
// taken from the collection parameter; without one everything is reloaded.
func UpdateCache(r Reloader) Handler {
	return func(ctx context.Context, env Envelope) error {
		if c := env.Param("collection"); c != "" {
			return r.Reload(ctx, c)
		}
		return r.LoadAll(ctx)
	}
}

// CacheEnvelope builds an update.cache signal for collection
func CacheEnvelope(domain, collection string, servers []string) Envelope {
	return Envelope{
		Key:    KeyUpdateCache,
		Domain: domain,
		Server: servers,
		Params: map[string]interface{}{"collection": collection},
	}
}
