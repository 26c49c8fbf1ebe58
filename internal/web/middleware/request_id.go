package middleware

import (
	"net/http"

	webcontext "github.com/conduit-lang/boardstore/internal/web/context"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// RequestID reuses the caller's request id or generates a UUID, stores it in
// the request context and echoes it on the response
func RequestID() Middleware {
	return RequestIDWith(func() string { return uuid.New().String() })
}

// RequestIDWith is RequestID with a custom id generator
func RequestIDWith(generate func() string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = generate()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(webcontext.SetRequestID(r.Context(), id)))
		})
	}
}
