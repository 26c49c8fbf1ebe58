package mapping

import (
	"github.com/conduit-lang/boardstore/internal/orm/coerce"
	"github.com/conduit-lang/boardstore/internal/orm/doc"
	"github.com/conduit-lang/boardstore/internal/orm/schema"
	"go.mongodb.org/mongo-driver/bson"
)

// FillDefaults returns a copy of in where every declared field that is
// missing carries its default. Nested objects and arrays of objects are
// filled as well; a single object in place of an array becomes a one element
// array.
func (e *Engine) FillDefaults(def schema.Definition, in bson.M, ctx coerce.Context) bson.M {
	out := doc.CloneMap(in)
	if out == nil {
		out = bson.M{}
	}
	e.fill(def, out, ctx)
	return out
}

// FillDefaultsAll fills every document of a batch
func (e *Engine) FillDefaultsAll(def schema.Definition, in []bson.M, ctx coerce.Context) []bson.M {
	out := make([]bson.M, len(in))
	for i, d := range in {
		out[i] = e.FillDefaults(def, d, ctx)
	}
	return out
}

func (e *Engine) fill(def schema.Definition, d bson.M, ctx coerce.Context) {
	for key, f := range def {
		val, present := d[key]
		if !present {
			if !f.HasDefault {
				continue
			}
			val = e.defaultValue(f, ctx)
			d[key] = val
		}

		switch f.Type {
		case schema.TypeObject:
			if len(f.Fields) == 0 {
				continue
			}
			if obj, ok := doc.AsMap(val); ok {
				e.fill(f.Fields, obj, ctx)
				d[key] = obj
			}
		case schema.TypeArray:
			if f.Elem == nil || f.Elem.Type != schema.TypeObject || len(f.Elem.Fields) == 0 {
				continue
			}
			if obj, ok := doc.AsMap(val); ok {
				e.fill(f.Elem.Fields, obj, ctx)
				d[key] = []interface{}{obj}
				continue
			}
			if items, ok := doc.AsSlice(val); ok {
				for i, item := range items {
					if obj, ok := doc.AsMap(item); ok {
						e.fill(f.Elem.Fields, obj, ctx)
						items[i] = obj
					}
				}
				d[key] = items
			}
		}
	}
}

// defaultValue copies the declared default. A string default of a composite
// type is parsed through the registry.
func (e *Engine) defaultValue(f *schema.Field, ctx coerce.Context) interface{} {
	if s, ok := f.Default.(string); ok && f.Type.IsComposite() {
		return e.types.ForWrite(s, f, ctx)
	}
	return doc.Clone(f.Default)
}
