package board

import (
	"strings"
	"time"

	"github.com/conduit-lang/boardstore/internal/orm/coerce"
	"github.com/conduit-lang/boardstore/internal/orm/doc"
	"github.com/conduit-lang/boardstore/internal/orm/schema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type formatter func(v interface{}, loc *time.Location) interface{}

var (
	converters  = coerce.MustRegistry()
	stringField = &schema.Field{Type: schema.TypeString}
)

var formatters = map[string]formatter{
	"date":     timeFormat("2006-01-02"),
	"datetime": timeFormat("2006-01-02 15:04:05"),
	"time":     timeFormat("15:04"),
	"upper":    textFormat(strings.ToUpper),
	"lower":    textFormat(strings.ToLower),
	"string": func(v interface{}, loc *time.Location) interface{} {
		return converters.ForWrite(v, stringField, coerce.Context{Location: loc})
	},
}

func timeFormat(layout string) formatter {
	return func(v interface{}, loc *time.Location) interface{} {
		switch t := v.(type) {
		case time.Time:
			return t.In(loc).Format(layout)
		case primitive.DateTime:
			return t.Time().In(loc).Format(layout)
		default:
			return v
		}
	}
}

func textFormat(fn func(string) string) formatter {
	return func(v interface{}, _ *time.Location) interface{} {
		if s, ok := v.(string); ok {
			return fn(s)
		}
		return v
	}
}

// bypass reports whether the board reads structure records, whose shape no
// board can describe
func (b *Board) bypass() bool {
	return b.Schema == schema.StructureCollection
}

// visible returns the selects in effect. A request select replaces the board
// selects.
func (b *Board) visible(p Params) []Select {
	if len(p.Select) == 0 {
		return b.Selects
	}
	out := make([]Select, 0, len(p.Select))
	for _, key := range p.Select {
		if key = strings.TrimSpace(key); key != "" {
			out = append(out, Select{Key: key, Select: true})
		}
	}
	return out
}

// Projection returns the store projection, nil meaning every field
func (b *Board) Projection(p Params) bson.M {
	if b.bypass() {
		return nil
	}
	out := bson.M{}
	for _, s := range b.visible(p) {
		if s.Select {
			out[s.Key] = 1
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Reject strips every field not selected from a read result. Dotted keys copy
// only the child, arrays of objects are projected element-wise, aliases rename
// the last path segment and formats are applied in the session timezone.
//
// A board selecting nothing matches Projection returning every field: the
// document is kept whole minus the keys explicitly marked select:false.
func (b *Board) Reject(in bson.M, p Params, s Session) bson.M {
	if b.bypass() || in == nil {
		return in
	}
	visible := b.visible(p)
	if !selectsAny(visible) {
		out := doc.CloneMap(in)
		for _, sel := range visible {
			drop(out, strings.Split(sel.Key, "."))
		}
		return out
	}
	out := bson.M{}
	for _, sel := range visible {
		if !sel.Select {
			continue
		}
		pick(in, strings.Split(sel.Key, "."), sel, s.location(), out)
	}
	return out
}

func selectsAny(selects []Select) bool {
	for _, s := range selects {
		if s.Select {
			return true
		}
	}
	return false
}

// drop deletes path from m, descending into objects and arrays of objects
func drop(m bson.M, path []string) {
	if len(path) == 1 {
		delete(m, path[0])
		return
	}
	switch v := m[path[0]].(type) {
	case bson.M:
		drop(v, path[1:])
	case []interface{}:
		for _, item := range v {
			if child, ok := item.(bson.M); ok {
				drop(child, path[1:])
			}
		}
	}
}

// RejectAll applies Reject to every document of a result set
func (b *Board) RejectAll(in []bson.M, p Params, s Session) []bson.M {
	out := make([]bson.M, len(in))
	for i, d := range in {
		out[i] = b.Reject(d, p, s)
	}
	return out
}

func pick(src bson.M, path []string, sel Select, loc *time.Location, dst bson.M) {
	val, ok := src[path[0]]
	if !ok {
		return
	}

	if len(path) == 1 {
		key := path[0]
		if sel.Alias != "" {
			key = sel.Alias
		}
		if fn, ok := formatters[sel.Format]; ok {
			dst[key] = fn(val, loc)
		} else {
			dst[key] = doc.Clone(val)
		}
		return
	}

	if m, ok := doc.AsMap(val); ok {
		child, _ := doc.AsMap(dst[path[0]])
		if child == nil {
			child = bson.M{}
		}
		pick(m, path[1:], sel, loc, child)
		if len(child) > 0 {
			dst[path[0]] = child
		}
		return
	}

	if items, ok := doc.AsSlice(val); ok {
		existing, _ := doc.AsSlice(dst[path[0]])
		out := make([]interface{}, len(items))
		for i, item := range items {
			var child bson.M
			if i < len(existing) {
				child, _ = doc.AsMap(existing[i])
			}
			if child == nil {
				child = bson.M{}
			}
			if m, ok := doc.AsMap(item); ok {
				pick(m, path[1:], sel, loc, child)
			}
			out[i] = child
		}
		dst[path[0]] = out
	}
}
