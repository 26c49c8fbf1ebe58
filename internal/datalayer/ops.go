package datalayer

import (
	"context"

	"github.com/conduit-lang/boardstore/internal/board"
	"github.com/conduit-lang/boardstore/internal/errs"
	"github.com/conduit-lang/boardstore/internal/metadata"
	"github.com/conduit-lang/boardstore/internal/orm/coerce"
	"github.com/conduit-lang/boardstore/internal/orm/doc"
	"github.com/conduit-lang/boardstore/internal/orm/query"
	"github.com/conduit-lang/boardstore/internal/orm/schema"
	"github.com/conduit-lang/boardstore/internal/store"
	"go.mongodb.org/mongo-driver/bson"
)

// target is a resolved schema. def is nil for metadata collections that have
// no structure record; their documents are stored unmapped.
type target struct {
	name   string
	def    schema.Definition
	locked bool
}

func (d *DataLayer) resolve(ctx context.Context, name string) (target, error) {
	s, def, err := d.loader.Structure(ctx, name)
	if err != nil {
		if errs.CodeOf(err) == errs.CodeUnknownSchema && metadata.IsCollection(name) {
			return target{name: name}, nil
		}
		return target{}, err
	}
	return target{name: name, def: def, locked: s.Lock}, nil
}

func (d *DataLayer) session(h Handler) board.Session {
	return board.Session{
		UserID:   h.UserID,
		CorpID:   h.CorpID,
		Now:      d.now(),
		Location: d.location(h),
	}
}

func (d *DataLayer) coercion(h Handler) coerce.Context {
	return coerce.Context{Location: d.location(h)}
}

// query compiles the native filter for a board call
func (d *DataLayer) query(ctx context.Context, h Handler, api string, p board.Params) (*board.Board, target, bson.M, error) {
	b, err := d.loader.Board(ctx, api)
	if err != nil {
		return nil, target{}, nil, err
	}
	t, err := d.resolve(ctx, b.Schema)
	if err != nil {
		return nil, target{}, nil, err
	}
	cond, err := b.Condition(p, d.session(h))
	if err != nil {
		return nil, target{}, nil, err
	}
	if t.def != nil {
		if cond, err = d.engine.ForQuery(t.def, cond, d.coercion(h)); err != nil {
			return nil, target{}, nil, err
		}
	}
	return b, t, cond, nil
}

// Find runs the board registered under api and returns the projected
// documents
func (d *DataLayer) Find(ctx context.Context, h Handler, api string, p board.Params) ([]bson.M, error) {
	b, t, cond, err := d.query(ctx, h, api, p)
	if err != nil {
		return nil, err
	}
	conn, err := d.pool.Get(ctx, d.database(h, t.name))
	if err != nil {
		return nil, err
	}

	docs, err := conn.Find(ctx, t.name, cond, store.FindOptions{
		Sort:       b.SortDocument(p),
		Projection: b.Projection(p),
		Skip:       p.Skip,
		Limit:      p.Limit,
	})
	if err != nil {
		return nil, err
	}
	d.log.Debugw("find", "api", api, "domain", h.Domain, "count", len(docs))
	return b.RejectAll(docs, p, d.session(h)), nil
}

// Count returns the number of documents the board matches
func (d *DataLayer) Count(ctx context.Context, h Handler, api string, p board.Params) (int64, error) {
	_, t, cond, err := d.query(ctx, h, api, p)
	if err != nil {
		return 0, err
	}
	conn, err := d.pool.Get(ctx, d.database(h, t.name))
	if err != nil {
		return 0, err
	}
	return conn.Count(ctx, t.name, cond)
}

// Get returns the document with the given id through the board registered
// under api, or nil when there is none
func (d *DataLayer) Get(ctx context.Context, h Handler, api string, id interface{}) (bson.M, error) {
	docs, err := d.Find(ctx, h, api, board.Params{ID: id, Limit: 1})
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

// Add inserts docs into the collection of schemaName and returns their ids
func (d *DataLayer) Add(ctx context.Context, h Handler, schemaName string, docs ...bson.M) ([]interface{}, error) {
	t, err := d.writable(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return []interface{}{}, nil
	}

	cc := d.coercion(h)
	now := d.now()
	out := make([]bson.M, 0, len(docs))
	for _, in := range docs {
		rec := clone(in)
		if t.def != nil {
			rec = d.engine.FillDefaults(t.def, rec, cc)
		}
		rec[schema.FieldCreateAt] = now
		rec[schema.FieldCreateBy] = h.UserID
		rec[schema.FieldUpdateAt] = now
		rec[schema.FieldUpdateBy] = h.UserID
		if _, ok := rec[schema.FieldValid]; !ok {
			rec[schema.FieldValid] = 1
		}
		if t.def != nil {
			if rec, err = d.engine.ForWrite(t.def, rec, cc); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}

	conn, err := d.pool.Get(ctx, d.database(h, t.name))
	if err != nil {
		return nil, err
	}
	ids, err := conn.Insert(ctx, t.name, out)
	if err != nil {
		return nil, err
	}
	d.log.Debugw("add", "schema", t.name, "domain", h.Domain, "count", len(ids))
	d.propagate(ctx, h, t.name)
	return ids, nil
}

// Update sets fields on every document matching condition and returns the
// number matched. A condition that is empty, before or after undeclared keys
// are pruned, is rejected.
func (d *DataLayer) Update(ctx context.Context, h Handler, schemaName string, condition, set bson.M) (int64, error) {
	if unbounded(condition) {
		return 0, errs.Config(errs.CodeEmptyCondition, "update of %q needs a condition", schemaName)
	}
	t, err := d.writable(ctx, schemaName)
	if err != nil {
		return 0, err
	}

	cc := d.coercion(h)
	set = clone(set)
	set[schema.FieldUpdateAt] = d.now()
	set[schema.FieldUpdateBy] = h.UserID
	if t.def != nil {
		if condition, err = d.engine.ForQuery(t.def, condition, cc); err != nil {
			return 0, err
		}
		if unbounded(condition) {
			return 0, errs.Config(errs.CodeEmptyCondition, "condition of %q names no declared field", schemaName)
		}
		if set, err = d.engine.ForWrite(t.def, set, cc); err != nil {
			return 0, err
		}
	}

	conn, err := d.pool.Get(ctx, d.database(h, t.name))
	if err != nil {
		return 0, err
	}
	n, err := conn.Update(ctx, t.name, condition, set)
	if err != nil {
		return 0, err
	}
	d.log.Debugw("update", "schema", t.name, "domain", h.Domain, "matched", n)
	d.propagate(ctx, h, t.name)
	return n, nil
}

// Remove soft deletes every document matching condition
func (d *DataLayer) Remove(ctx context.Context, h Handler, schemaName string, condition bson.M) (int64, error) {
	return d.Update(ctx, h, schemaName, condition, bson.M{schema.FieldValid: 0})
}

func (d *DataLayer) writable(ctx context.Context, name string) (target, error) {
	t, err := d.resolve(ctx, name)
	if err != nil {
		return target{}, err
	}
	if t.locked {
		return target{}, errs.Config(errs.CodeSchemaLocked, "schema %q is locked", name)
	}
	return t, nil
}

// unbounded reports whether condition matches every document: it is empty,
// or consists only of $and branches that all match everything and $or
// branches of which one does.
func unbounded(condition bson.M) bool {
	for key, val := range condition {
		switch key {
		case "$and":
			for _, b := range query.Branches(val) {
				if m, ok := doc.AsMap(b); !ok || !unbounded(m) {
					return false
				}
			}
		case "$or":
			found := false
			for _, b := range query.Branches(val) {
				if m, ok := doc.AsMap(b); ok && unbounded(m) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func clone(in bson.M) bson.M {
	if out := doc.CloneMap(in); out != nil {
		return out
	}
	return bson.M{}
}
