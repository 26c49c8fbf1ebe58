package store

import (
	"context"
	"sync"
	"time"

	"github.com/conduit-lang/boardstore/internal/errs"
	"go.uber.org/zap"
)

// DefaultKeepTime is how long a duplicate handle stays open after it was parked
const DefaultKeepTime = 20 * time.Second

// Pool keeps one primary handle per database name.
//
// Requests racing on the first access to a name may each dial. The first
// handle to land becomes the primary; later ones are returned to their own
// caller and parked in a temporary set, from which they are closed once the
// keep time has passed. The primary is never closed before Close.
type Pool struct {
	dial Dialer
	keep time.Duration
	now  func() time.Time
	log  *zap.SugaredLogger

	mu        sync.Mutex
	primary   map[string]Conn
	temporary map[string][]parked
}

type parked struct {
	conn Conn
	at   time.Time
}

// PoolOption configures a Pool
type PoolOption func(*Pool)

// WithKeepTime sets how long parked duplicates stay open
func WithKeepTime(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.keep = d
		}
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) PoolOption {
	return func(p *Pool) {
		p.now = now
	}
}

// NewPool creates a pool over dial
func NewPool(dial Dialer, log *zap.SugaredLogger, opts ...PoolOption) *Pool {
	p := &Pool{
		dial:      dial,
		keep:      DefaultKeepTime,
		now:       time.Now,
		log:       log,
		primary:   make(map[string]Conn),
		temporary: make(map[string][]parked),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the primary handle for name, dialing on first access
func (p *Pool) Get(ctx context.Context, name string) (Conn, error) {
	p.sweep(ctx)

	p.mu.Lock()
	conn, ok := p.primary[name]
	p.mu.Unlock()
	if ok {
		return conn, nil
	}

	conn, err := p.dial(ctx, name)
	if err != nil {
		if errs.KindOf(err) == errs.KindUnknown {
			err = errs.IO(errs.CodeConnectFailed, err, "connect %s", name)
		}
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.primary[name]; exists {
		p.temporary[name] = append(p.temporary[name], parked{conn: conn, at: p.now()})
		p.log.Debugw("parked duplicate connection", "db", name, "parked", len(p.temporary[name]))
		return conn, nil
	}
	p.primary[name] = conn
	p.log.Debugw("opened primary connection", "db", name)
	return conn, nil
}

// sweep closes parked handles older than the keep time
func (p *Pool) sweep(ctx context.Context) {
	now := p.now()
	var expired []Conn

	p.mu.Lock()
	for name, list := range p.temporary {
		kept := list[:0]
		for _, t := range list {
			if now.Sub(t.at) >= p.keep {
				expired = append(expired, t.conn)
				continue
			}
			kept = append(kept, t)
		}
		if len(kept) == 0 {
			delete(p.temporary, name)
		} else {
			p.temporary[name] = kept
		}
	}
	p.mu.Unlock()

	for _, c := range expired {
		if err := c.Close(ctx); err != nil {
			p.log.Warnw("closing parked connection failed", "error", err)
		}
	}
	if len(expired) > 0 {
		p.log.Debugw("closed parked connections", "count", len(expired))
	}
}

// Stats returns the number of primary and parked handles
func (p *Pool) Stats() (primary, temporary int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, list := range p.temporary {
		temporary += len(list)
	}
	return len(p.primary), temporary
}

// Close closes every handle. The pool is empty afterwards.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	var all []Conn
	for _, c := range p.primary {
		all = append(all, c)
	}
	for _, list := range p.temporary {
		for _, t := range list {
			all = append(all, t.conn)
		}
	}
	p.primary = make(map[string]Conn)
	p.temporary = make(map[string][]parked)
	p.mu.Unlock()

	var first error
	for _, c := range all {
		if err := c.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
