// Package store holds connections to the document store. Each logical
// database name maps to one long lived primary handle kept by the Pool.
package store

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// FindOptions shape a find call
type FindOptions struct {
	Sort       bson.D
	Projection bson.M
	Skip       int64
	Limit      int64
}

// Conn is a handle on one logical database
type Conn interface {
	Find(ctx context.Context, collection string, filter bson.M, opts FindOptions) ([]bson.M, error)
	Count(ctx context.Context, collection string, filter bson.M) (int64, error)
	Insert(ctx context.Context, collection string, docs []bson.M) ([]interface{}, error)
	// Update applies set to every document matching filter and returns the
	// number of matched documents
	Update(ctx context.Context, collection string, filter, set bson.M) (int64, error)
	Close(ctx context.Context) error
}

// Dialer opens a new handle on the named database
type Dialer func(ctx context.Context, name string) (Conn, error)

// DialerFor returns the in-process store for a memory:// URI and MongoDialer
// otherwise
func DialerFor(cfg MongoConfig) Dialer {
	if strings.HasPrefix(cfg.URI, MemoryScheme) {
		return NewMemoryStore().Dialer()
	}
	return MongoDialer(cfg)
}
