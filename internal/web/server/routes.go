package server

import (
	"context"
	"io"
	"net/http"

	"github.com/conduit-lang/boardstore/internal/board"
	"github.com/conduit-lang/boardstore/internal/datalayer"
	"github.com/conduit-lang/boardstore/internal/errs"
	webcontext "github.com/conduit-lang/boardstore/internal/web/context"
	"github.com/conduit-lang/boardstore/internal/web/middleware"
	"github.com/conduit-lang/boardstore/internal/web/query"
	"github.com/conduit-lang/boardstore/internal/web/response"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// HealthPath answers liveness probes
const HealthPath = "/healthz"

// Store is the data access the HTTP API needs
type Store interface {
	Find(ctx context.Context, h datalayer.Handler, api string, p board.Params) ([]bson.M, error)
	Count(ctx context.Context, h datalayer.Handler, api string, p board.Params) (int64, error)
	Get(ctx context.Context, h datalayer.Handler, api string, id interface{}) (bson.M, error)
	Add(ctx context.Context, h datalayer.Handler, schemaName string, docs ...bson.M) ([]interface{}, error)
	Update(ctx context.Context, h datalayer.Handler, schemaName string, condition, set bson.M) (int64, error)
	Remove(ctx context.Context, h datalayer.Handler, schemaName string, condition bson.M) (int64, error)
}

// Mounter adds its own routes to a router
type Mounter interface {
	Mount(r chi.Router)
}

// RouterConfig wires the HTTP API
type RouterConfig struct {
	Store    Store
	Log      *zap.SugaredLogger
	Identity middleware.IdentityConfig
	// Extra are mounted next to the API, e.g. the signal endpoint
	Extra []Mounter
}

// NewRouter builds the HTTP API:
//
//	GET  /healthz
//	GET|POST /api/board/{api}          find
//	GET|POST /api/board/{api}/count    count
//	GET  /api/board/{api}/id/{id}      get one
//	POST   /api/schema/{schema}        add {"docs": [...]}
//	PUT    /api/schema/{schema}        update {"condition": {...}, "set": {...}}
//	DELETE /api/schema/{schema}        remove {"condition": {...}}
func NewRouter(cfg RouterConfig) http.Handler {
	h := &handlers{store: cfg.Store, log: cfg.Log}

	r := chi.NewRouter()
	r.Use(middleware.Standard(cfg.Log, cfg.Identity, HealthPath).Then)

	r.Get(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		response.RenderOK(w, nil)
	})
	for _, m := range cfg.Extra {
		m.Mount(r)
	}

	r.Route("/api/board/{api}", func(r chi.Router) {
		r.Get("/", h.find)
		r.Post("/", h.find)
		r.Get("/count", h.count)
		r.Post("/count", h.count)
		r.Get("/id/{id}", h.get)
	})
	r.Route("/api/schema/{schema}", func(r chi.Router) {
		r.Post("/", h.add)
		r.Put("/", h.update)
		r.Delete("/", h.remove)
	})
	return r
}

type handlers struct {
	store Store
	log   *zap.SugaredLogger
}

// caller builds the data layer handler from the identity middleware values
func caller(r *http.Request) datalayer.Handler {
	ctx := r.Context()
	return datalayer.Handler{
		Domain:   webcontext.GetDomain(ctx),
		UserID:   webcontext.GetUser(ctx),
		CorpID:   webcontext.GetCorp(ctx),
		Location: webcontext.GetLocation(ctx),
	}
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !errs.IsConfig(err) {
		h.log.Errorw("request failed",
			"request_id", webcontext.GetRequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	response.RenderError(w, err)
}

func (h *handlers) find(w http.ResponseWriter, r *http.Request) {
	p, err := query.Parse(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	docs, err := h.store.Find(r.Context(), caller(r), chi.URLParam(r, "api"), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, map[string]interface{}{"data": docs, "count": len(docs)})
}

func (h *handlers) count(w http.ResponseWriter, r *http.Request) {
	p, err := query.Parse(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.store.Count(r.Context(), caller(r), chi.URLParam(r, "api"), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, map[string]interface{}{"count": n})
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.Get(r.Context(), caller(r), chi.URLParam(r, "api"), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if d == nil {
		response.RenderErrorWithCode(w, http.StatusNotFound, errs.Config(errs.CodeNotFound, "no record %s", chi.URLParam(r, "id")), errs.CodeNotFound)
		return
	}
	response.RenderJSON(w, http.StatusOK, map[string]interface{}{"data": d})
}

type writeBody struct {
	Docs      []bson.M `bson:"docs"`
	Condition bson.M   `bson:"condition"`
	Set       bson.M   `bson:"set"`
}

// decodeWrite reads an extended JSON write body
func decodeWrite(r *http.Request) (writeBody, error) {
	var b writeBody
	raw, err := io.ReadAll(io.LimitReader(r.Body, query.MaxBodySize))
	if err != nil {
		return b, errs.Config(errs.CodeInvalidParams, "read body: %v", err)
	}
	if err := bson.UnmarshalExtJSON(raw, false, &b); err != nil {
		return b, errs.Config(errs.CodeInvalidParams, "decode body: %v", err)
	}
	return b, nil
}

func (h *handlers) add(w http.ResponseWriter, r *http.Request) {
	b, err := decodeWrite(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ids, err := h.store.Add(r.Context(), caller(r), chi.URLParam(r, "schema"), b.Docs...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, map[string]interface{}{"ids": ids})
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	b, err := decodeWrite(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.store.Update(r.Context(), caller(r), chi.URLParam(r, "schema"), b.Condition, b.Set)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.RenderOK(w, map[string]interface{}{"matched": n})
}

func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	b, err := decodeWrite(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.store.Remove(r.Context(), caller(r), chi.URLParam(r, "schema"), b.Condition)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.RenderOK(w, map[string]interface{}{"matched": n})
}
