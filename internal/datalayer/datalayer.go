// Package datalayer ties the metadata driven pipeline to the document store.
//
// A DataLayer is constructed once at startup and passed to whoever serves
// requests. Reads resolve a board, compile its filters, coerce the result
// against the board's schema and project the documents read. Writes fill
// defaults, stamp audit fields and coerce before storing. Writes to metadata
// collections reload the local cache and notify the configured peers.
package datalayer

import (
	"context"
	"sync"
	"time"

	"github.com/conduit-lang/boardstore/internal/metadata"
	"github.com/conduit-lang/boardstore/internal/orm/coerce"
	"github.com/conduit-lang/boardstore/internal/orm/mapping"
	"github.com/conduit-lang/boardstore/internal/signal"
	"github.com/conduit-lang/boardstore/internal/store"
	"github.com/conduit-lang/boardstore/internal/web/cache"
	"go.uber.org/zap"
)

// Config holds the data layer settings
type Config struct {
	// SystemDB holds the metadata collections
	SystemDB string
	// Self is this instance's own address, never signalled
	Self string
	// Peers are the instances notified of metadata writes
	Peers []string
	// Location is the default timezone for coercion and formatting
	Location *time.Location
}

// Handler identifies who a data layer call is made for
type Handler struct {
	// Domain selects the tenant database. Empty means the system database.
	Domain   string
	UserID   string
	CorpID   string
	Location *time.Location
}

// DataLayer is the process level entry point to the store
type DataLayer struct {
	cfg    Config
	pool   *store.Pool
	cache  cache.Cache
	loader *metadata.Loader
	bus    *signal.Bus
	engine *mapping.Engine
	log    *zap.SugaredLogger
	now    func() time.Time

	broadcasts sync.WaitGroup
}

// New creates a data layer. Metadata is read from the system database of
// pool into c.
func New(cfg Config, pool *store.Pool, c cache.Cache, bus *signal.Bus, log *zap.SugaredLogger) *DataLayer {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &DataLayer{
		cfg:    cfg,
		pool:   pool,
		cache:  c,
		loader: metadata.NewLoader(metadata.NewStoreSource(pool, cfg.SystemDB), c, log),
		bus:    bus,
		engine: mapping.New(coerce.MustRegistry()),
		log:    log,
		now:    time.Now,
	}
}

// Start registers the built-in signal listeners and loads all metadata
func (d *DataLayer) Start(ctx context.Context) error {
	d.bus.AddListener(signal.KeyUpdateCache, signal.UpdateCache(d.loader))
	if err := d.loader.LoadAll(ctx); err != nil {
		return err
	}
	d.log.Infow("data layer started", "system", d.cfg.SystemDB, "peers", len(d.cfg.Peers))
	return nil
}

// Close waits for pending peer notifications and closes every connection
func (d *DataLayer) Close(ctx context.Context) error {
	d.broadcasts.Wait()
	return d.pool.Close(ctx)
}

// Loader returns the metadata loader
func (d *DataLayer) Loader() *metadata.Loader {
	return d.loader
}

// Bus returns the signal bus
func (d *DataLayer) Bus() *signal.Bus {
	return d.bus
}

// database returns the database a collection lives in for h
func (d *DataLayer) database(h Handler, collection string) string {
	if h.Domain == "" || metadata.IsCollection(collection) {
		return d.cfg.SystemDB
	}
	return h.Domain
}

func (d *DataLayer) location(h Handler) *time.Location {
	if h.Location != nil {
		return h.Location
	}
	return d.cfg.Location
}

// peers returns the configured peers without this instance
func (d *DataLayer) peers() []string {
	out := make([]string, 0, len(d.cfg.Peers))
	for _, p := range d.cfg.Peers {
		if p != "" && p != d.cfg.Self {
			out = append(out, p)
		}
	}
	return out
}

// propagate reloads a written metadata collection and tells the peers to do
// the same. Peer delivery runs in the background.
func (d *DataLayer) propagate(ctx context.Context, h Handler, collection string) {
	if !metadata.IsCollection(collection) {
		return
	}
	if err := d.loader.Reload(ctx, collection); err != nil {
		d.log.Errorw("local metadata reload failed", "collection", collection, "error", err)
	}

	peers := d.peers()
	if len(peers) == 0 {
		return
	}
	env := signal.CacheEnvelope(h.Domain, collection, peers)
	bg := context.WithoutCancel(ctx)
	d.broadcasts.Add(1)
	go func() {
		defer d.broadcasts.Done()
		d.bus.Send(bg, env)
	}()
}
