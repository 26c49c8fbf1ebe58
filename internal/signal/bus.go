// Package signal delivers fire and forget notifications between instances.
//
// A sender fans one GET request per peer out concurrently; each peer looks up
// the listener registered for the signal key and runs it. Delivery failures
// are logged and reported per peer, never returned to the code that
// triggered the signal.
package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/conduit-lang/boardstore/internal/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Path is the endpoint every peer serves
const Path = "/api/system/signal"

// Envelope is one signal
type Envelope struct {
	Key    string                 `json:"key"`
	Domain string                 `json:"domain"`
	Server []string               `json:"server"`
	Params map[string]interface{} `json:"params"`
}

// Param returns a string parameter
func (e Envelope) Param(name string) string {
	s, _ := e.Params[name].(string)
	return s
}

// Handler reacts to a received signal
type Handler func(ctx context.Context, env Envelope) error

// Delivery is the outcome of sending to one peer
type Delivery struct {
	Server string
	Err    error
}

// Config holds the bus settings
type Config struct {
	// Timeout bounds each outbound request
	Timeout time.Duration
	// Concurrency bounds the number of requests in flight
	Concurrency int
}

// DefaultConfig returns the default bus settings
func DefaultConfig() Config {
	return Config{
		Timeout:     5 * time.Second,
		Concurrency: 8,
	}
}

// Bus keeps the listener table and sends signals to peers
type Bus struct {
	mu        sync.RWMutex
	listeners map[string]Handler

	client      *http.Client
	concurrency int
	log         *zap.SugaredLogger
}

// NewBus creates a bus
func NewBus(cfg Config, log *zap.SugaredLogger) *Bus {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	return &Bus{
		listeners:   make(map[string]Handler),
		client:      &http.Client{Timeout: cfg.Timeout},
		concurrency: cfg.Concurrency,
		log:         log,
	}
}

// AddListener registers the handler for key. A later registration replaces
// an earlier one.
func (b *Bus) AddListener(key string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[key] = h
}

// Receive runs the handler registered for the envelope key. Unknown keys are
// ignored.
func (b *Bus) Receive(ctx context.Context, env Envelope) error {
	b.mu.RLock()
	h, ok := b.listeners[env.Key]
	b.mu.RUnlock()
	if !ok {
		b.log.Debugw("no listener for signal", "key", env.Key)
		return nil
	}
	return h(ctx, env)
}

// Send delivers env to every server it names and reports the outcome per
// server, in the order given. One failing peer does not stop the others.
func (b *Bus) Send(ctx context.Context, env Envelope) []Delivery {
	out := make([]Delivery, len(env.Server))
	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)

	for i, server := range env.Server {
		i, server := i, server
		g.Go(func() error {
			err := b.deliver(ctx, server, env)
			if err != nil {
				b.log.Warnw("signal delivery failed", "server", server, "key", env.Key, "error", err)
			}
			out[i] = Delivery{Server: server, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (b *Bus) deliver(ctx context.Context, server string, env Envelope) error {
	target, err := signalURL(server, env)
	if err != nil {
		return errs.IO(errs.CodeSignalFailed, err, "build signal url for %s", server)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errs.IO(errs.CodeSignalFailed, err, "create signal request for %s", server)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return errs.IO(errs.CodeSignalFailed, err, "send signal to %s", server)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errs.IO(errs.CodeSignalFailed, fmt.Errorf("status %d", resp.StatusCode), "send signal to %s", server)
	}
	return nil
}

// signalURL encodes the envelope into the query string of the peer endpoint
func signalURL(server string, env Envelope) (string, error) {
	base := server
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + Path)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("key", env.Key)
	if env.Domain != "" {
		q.Set("domain", env.Domain)
	}
	if len(env.Params) > 0 {
		params, err := json.Marshal(env.Params)
		if err != nil {
			return "", err
		}
		q.Set("params", string(params))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Decode reads an envelope from a signal request
func Decode(r *http.Request) (Envelope, error) {
	q := r.URL.Query()
	env := Envelope{
		Key:    q.Get("key"),
		Domain: q.Get("domain"),
		Params: map[string]interface{}{},
	}
	if env.Key == "" {
		return env, fmt.Errorf("signal key is required")
	}
	if raw := q.Get("params"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &env.Params); err != nil {
			return env, fmt.Errorf("decode signal params: %w", err)
		}
	}
	return env, nil
}
