package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	webcontext "github.com/conduit-lang/boardstore/internal/web/context"
	"github.com/conduit-lang/boardstore/internal/web/response"
	"go.uber.org/zap"
)

// Recovery turns a panicking handler into a 500 response and logs the panic
// with its stack
func Recovery(log *zap.SugaredLogger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				log.Errorw("panic recovered",
					"request_id", webcontext.GetRequestID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", fmt.Sprint(p),
					"stack", string(debug.Stack()),
				)
				response.RenderInternalError(w, errors.New("an unexpected error occurred"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
