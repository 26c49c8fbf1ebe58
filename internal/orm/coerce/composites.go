package coerce

import (
	"encoding/json"
	"strings"

	"github.com/conduit-lang/boardstore/internal/orm/doc"
	"github.com/conduit-lang/boardstore/internal/orm/schema"
	"go.mongodb.org/mongo-driver/bson"
)

func objectForWrite(r *Registry, raw interface{}, field *schema.Field, ctx Context) interface{} {
	return r.object(raw, field, ctx, r.ForWrite)
}

func objectForQuery(r *Registry, raw interface{}, field *schema.Field, ctx Context) interface{} {
	return r.object(raw, field, ctx, r.ForQuery)
}

// object decodes JSON bodies and converts declared sub-keys. Undeclared
// sub-keys are kept as they are.
func (r *Registry) object(raw interface{}, field *schema.Field, ctx Context, convert func(interface{}, *schema.Field, Context) interface{}) interface{} {
	if doc.IsBlank(raw) {
		return bson.M{}
	}

	if s, ok := raw.(string); ok {
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil
		}
		raw = decoded
	}

	m, ok := doc.AsMap(raw)
	if !ok {
		return nil
	}

	out := make(bson.M, len(m))
	for k, v := range m {
		if sub, declared := field.Fields[k]; declared {
			out[k] = convert(v, sub, ctx)
			continue
		}
		out[k] = v
	}
	return out
}

func arrayForWrite(r *Registry, raw interface{}, field *schema.Field, ctx Context) interface{} {
	return r.elements(normalizeArray(raw), field, ctx, r.ForWrite)
}

// arrayForQuery converts a scalar operand as a single element so that it
// matches array members
func arrayForQuery(r *Registry, raw interface{}, field *schema.Field, ctx Context) interface{} {
	if raw == nil {
		return nil
	}
	if _, isSlice := doc.AsSlice(raw); !isSlice && !isJSONArray(raw) {
		return r.ForQuery(raw, field.Elem, ctx)
	}
	return r.elements(normalizeArray(raw), field, ctx, r.ForQuery)
}

func (r *Registry) elements(items []interface{}, field *schema.Field, ctx Context, convert func(interface{}, *schema.Field, Context) interface{}) []interface{} {
	out := make([]interface{}, len(items))
	for i, item := range items {
		if field.Elem == nil {
			out[i] = item
			continue
		}
		out[i] = convert(item, field.Elem, ctx)
	}
	return out
}

// normalizeArray returns raw as a slice. Blank values are empty, JSON array
// bodies are decoded and anything else is wrapped as a single element.
func normalizeArray(raw interface{}) []interface{} {
	if doc.IsBlank(raw) {
		return []interface{}{}
	}
	if items, ok := doc.AsSlice(raw); ok {
		return items
	}
	if isJSONArray(raw) {
		var decoded []interface{}
		if err := json.Unmarshal([]byte(raw.(string)), &decoded); err == nil {
			return decoded
		}
	}
	return []interface{}{raw}
}

func isJSONArray(raw interface{}) bool {
	s, ok := raw.(string)
	return ok && strings.HasPrefix(strings.TrimSpace(s), "[")
}
