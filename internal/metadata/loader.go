// Package metadata loads the records that drive the data layer: structures,
// boards, configuration, validators, messages and routes. Each collection is
// parsed into its typed form and kept whole in the metadata cache.
package metadata

import (
	"context"
	"fmt"

	"github.com/conduit-lang/boardstore/internal/board"
	"github.com/conduit-lang/boardstore/internal/errs"
	"github.com/conduit-lang/boardstore/internal/orm/schema"
	"github.com/conduit-lang/boardstore/internal/store"
	"github.com/conduit-lang/boardstore/internal/web/cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Metadata collections
const (
	Configuration = "configuration"
	Validator     = "validator"
	I18n          = "i18n"
	Structure     = schema.StructureCollection
	Board         = board.Collection
	Route         = "route"
)

// Collections lists every metadata collection in load order
var Collections = []string{Configuration, Validator, I18n, Structure, Board, Route}

// IsCollection reports whether name is a metadata collection
func IsCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

// Source reads a whole metadata collection
type Source interface {
	Load(ctx context.Context, collection string) ([]bson.M, error)
}

// StoreSource reads valid records from the system database
type StoreSource struct {
	pool *store.Pool
	db   string
}

// NewStoreSource creates a source over the named database of pool
func NewStoreSource(pool *store.Pool, db string) *StoreSource {
	return &StoreSource{pool: pool, db: db}
}

// Load implements Source
func (s *StoreSource) Load(ctx context.Context, collection string) ([]bson.M, error) {
	conn, err := s.pool.Get(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return conn.Find(ctx, collection, bson.M{schema.FieldValid: 1}, store.FindOptions{})
}

// Loader fills the metadata cache from a source
type Loader struct {
	src    Source
	cache  cache.Cache
	log    *zap.SugaredLogger
	misses *singleflight.Group
}

// NewLoader creates a loader
func NewLoader(src Source, c cache.Cache, log *zap.SugaredLogger) *Loader {
	return &Loader{src: src, cache: c, log: log, misses: new(singleflight.Group)}
}

// LoadAll reloads every collection concurrently. The first failure is
// returned; collections that loaded are kept.
func (l *Loader) LoadAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range Collections {
		name := name
		g.Go(func() error {
			return l.Reload(ctx, name)
		})
	}
	return g.Wait()
}

// Reload fetches one collection and replaces its cache entry. A collection
// that fails to parse leaves the previous entry in place.
func (l *Loader) Reload(ctx context.Context, collection string) error {
	value, err := l.fetch(ctx, collection)
	if err != nil {
		l.log.Errorw("metadata reload failed", "collection", collection, "error", err)
		return err
	}
	l.cache.Set(cache.Key(collection), value)
	l.log.Infow("metadata reloaded", "collection", collection)
	return nil
}

func (l *Loader) fetch(ctx context.Context, collection string) (interface{}, error) {
	if !IsCollection(collection) {
		return nil, errs.Config(errs.CodeUnknownCollection, "unknown metadata collection %q", collection)
	}
	raw, err := l.src.Load(ctx, collection)
	if err != nil {
		if errs.KindOf(err) == errs.KindUnknown {
			err = errs.IO(errs.CodeLoadFailed, err, "load %s", collection)
		}
		return nil, err
	}
	value, err := parse(collection, raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", collection, err)
	}
	return value, nil
}

// get returns the cached collection, reading it directly on a miss.
// Concurrent misses on one collection share a single read.
func (l *Loader) get(ctx context.Context, collection string) (interface{}, error) {
	if v, ok := l.cache.Get(cache.Key(collection)); ok {
		return v, nil
	}
	v, err, _ := l.misses.Do(collection, func() (interface{}, error) {
		v, err := l.fetch(ctx, collection)
		if err != nil {
			return nil, err
		}
		l.cache.Set(cache.Key(collection), v)
		return v, nil
	})
	return v, err
}
