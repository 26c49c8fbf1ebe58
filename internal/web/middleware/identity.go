package middleware

import (
	"net/http"
	"time"
	// caller timezones must resolve on hosts without a zoneinfo database
	_ "time/tzdata"

	webcontext "github.com/conduit-lang/boardstore/internal/web/context"
	"github.com/conduit-lang/boardstore/internal/web/response"
)

// IdentityConfig names the headers the handler identity is read from
type IdentityConfig struct {
	DomainHeader   string
	UserHeader     string
	CorpHeader     string
	TimezoneHeader string
	// Location is used when the request names no timezone
	Location *time.Location
}

// DefaultIdentityConfig returns the default header names in UTC
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{
		DomainHeader:   "X-Domain",
		UserHeader:     "X-User-ID",
		CorpHeader:     "X-Corp-ID",
		TimezoneHeader: "X-Timezone",
		Location:       time.UTC,
	}
}

// Identity copies the caller's domain, user, company and timezone from the
// request headers into the request context. An unknown timezone is rejected
// with 400.
func Identity(config IdentityConfig) Middleware {
	if config.Location == nil {
		config.Location = time.UTC
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := config.Location
			if tz := r.Header.Get(config.TimezoneHeader); tz != "" {
				l, err := time.LoadLocation(tz)
				if err != nil {
					response.RenderBadRequest(w, "unknown timezone "+tz)
					return
				}
				loc = l
			}

			ctx := r.Context()
			ctx = webcontext.SetDomain(ctx, r.Header.Get(config.DomainHeader))
			ctx = webcontext.SetUser(ctx, r.Header.Get(config.UserHeader))
			ctx = webcontext.SetCorp(ctx, r.Header.Get(config.CorpHeader))
			ctx = webcontext.SetLocation(ctx, loc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
