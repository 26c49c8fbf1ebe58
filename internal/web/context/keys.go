package context

import (
	"context"
	"time"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey int

const (
	requestIDKey contextKey = iota
	domainKey
	userKey
	corpKey
	locationKey
)

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// SetRequestID adds the request ID to the context
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetDomain extracts the tenant domain from the context
func GetDomain(ctx context.Context) string {
	if domain, ok := ctx.Value(domainKey).(string); ok {
		return domain
	}
	return ""
}

// SetDomain adds the tenant domain to the context
func SetDomain(ctx context.Context, domain string) context.Context {
	return context.WithValue(ctx, domainKey, domain)
}

// GetUser extracts the calling user ID from the context
func GetUser(ctx context.Context) string {
	if user, ok := ctx.Value(userKey).(string); ok {
		return user
	}
	return ""
}

// SetUser adds the calling user ID to the context
func SetUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetCorp extracts the company ID from the context
func GetCorp(ctx context.Context) string {
	if corp, ok := ctx.Value(corpKey).(string); ok {
		return corp
	}
	return ""
}

// SetCorp adds the company ID to the context
func SetCorp(ctx context.Context, corp string) context.Context {
	return context.WithValue(ctx, corpKey, corp)
}

// GetLocation extracts the caller's timezone, nil when unset
func GetLocation(ctx context.Context) *time.Location {
	if loc, ok := ctx.Value(locationKey).(*time.Location); ok {
		return loc
	}
	return nil
}

// SetLocation adds the caller's timezone to the context
func SetLocation(ctx context.Context, loc *time.Location) context.Context {
	return context.WithValue(ctx, locationKey, loc)
}
