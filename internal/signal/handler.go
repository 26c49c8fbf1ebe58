package signal

import (
	"context"
	"net/http"

	"github.com/conduit-lang/boardstore/internal/web/response"
	"github.com/go-chi/chi/v5"
)

// Mount registers the signal endpoint on r. The request is acknowledged
// before the listener runs; the listener gets a context detached from the
// request.
func (b *Bus) Mount(r chi.Router) {
	r.Get(Path, b.serveSignal)
}

func (b *Bus) serveSignal(w http.ResponseWriter, r *http.Request) {
	env, err := Decode(r)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if err := b.Receive(ctx, env); err != nil {
			b.log.Errorw("signal listener failed", "key", env.Key, "domain", env.Domain, "error", err)
		}
	}()
	response.RenderOK(w, map[string]interface{}{"key": env.Key})
}
