package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain is an ordered list of middleware. The first middleware added is the
// outermost.
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Use adds a middleware to the chain
func (c *Chain) Use(m Middleware) *Chain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// Then wraps handler with every middleware in the chain
func (c *Chain) Then(handler http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}
	return handler
}

// Standard returns the chain every boardstore endpoint runs behind: request
// id, recovery, handler identity and request logging, in that order.
func Standard(log *zap.SugaredLogger, identity IdentityConfig, skipLog ...string) *Chain {
	return NewChain(
		RequestID(),
		Recovery(log),
		Identity(identity),
		Logging(log, skipLog...),
	)
}
