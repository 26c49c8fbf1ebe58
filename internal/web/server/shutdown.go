package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// GracefulShutdown runs a server until it is told to stop, then shuts it down
// and runs the registered hooks
type GracefulShutdown struct {
	server  *Server
	timeout time.Duration
	signals []os.Signal
	log     *zap.SugaredLogger

	mu    sync.Mutex
	hooks []ShutdownHook

	once sync.Once
	done chan struct{}
	err  error
}

// ShutdownHook is called during graceful shutdown, after the server stopped
// accepting requests
type ShutdownHook func(ctx context.Context) error

// ShutdownConfig holds graceful shutdown configuration
type ShutdownConfig struct {
	// Timeout bounds the server drain and all hooks together
	Timeout time.Duration
	// Signals to listen for (default: SIGINT, SIGTERM)
	Signals []os.Signal
}

// DefaultShutdownConfig returns default shutdown configuration
func DefaultShutdownConfig() ShutdownConfig {
	return ShutdownConfig{
		Timeout: 30 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// NewGracefulShutdown creates a graceful shutdown handler for server
func NewGracefulShutdown(server *Server, config ShutdownConfig, log *zap.SugaredLogger) *GracefulShutdown {
	if config.Timeout <= 0 {
		config.Timeout = DefaultShutdownConfig().Timeout
	}
	if len(config.Signals) == 0 {
		config.Signals = DefaultShutdownConfig().Signals
	}
	return &GracefulShutdown{
		server:  server,
		timeout: config.Timeout,
		signals: config.Signals,
		log:     log,
		done:    make(chan struct{}),
	}
}

// RegisterHook registers a hook. Hooks run in registration order.
func (gs *GracefulShutdown) RegisterHook(hook ShutdownHook) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, hook)
}

// Run serves until ctx is done, a shutdown signal arrives or the server
// fails, then shuts down
func (gs *GracefulShutdown) Run(ctx context.Context) error {
	if err := gs.server.Listen(); err != nil {
		return err
	}

	ctx, stop := ossignal.NotifyContext(ctx, gs.signals...)
	defer stop()

	failed := make(chan error, 1)
	go func() {
		gs.log.Infow("server listening", "address", gs.server.Addr())
		if err := gs.server.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		gs.log.Infow("shutdown requested")
		return gs.Shutdown()
	case err := <-failed:
		_ = gs.Shutdown()
		return err
	}
}

// Shutdown stops the server and runs the hooks once. A failing hook does not
// stop the remaining ones.
func (gs *GracefulShutdown) Shutdown() error {
	gs.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
		defer cancel()

		if err := gs.server.Shutdown(ctx); err != nil {
			gs.err = fmt.Errorf("server shutdown: %w", err)
			gs.log.Errorw("server shutdown failed", "error", err)
		}

		gs.mu.Lock()
		hooks := append([]ShutdownHook(nil), gs.hooks...)
		gs.mu.Unlock()
		for i, hook := range hooks {
			if err := hook(ctx); err != nil {
				gs.log.Errorw("shutdown hook failed", "hook", i, "error", err)
				if gs.err == nil {
					gs.err = err
				}
			}
		}
		gs.log.Infow("shutdown complete")
		close(gs.done)
	})

	<-gs.done
	return gs.err
}

// Wait blocks until shutdown is complete
func (gs *GracefulShutdown) Wait() error {
	<-gs.done
	return gs.err
}
