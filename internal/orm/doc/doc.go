// Package doc provides helpers for working with loosely typed documents
// decoded from JSON or BSON.
package doc

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// AsMap returns v as a bson.M if it is any of the map shapes produced by the
// JSON and BSON decoders
func AsMap(v interface{}) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return bson.M(m), true
	case bson.D:
		out := make(bson.M, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	case map[string]string:
		out := make(bson.M, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// AsSlice returns v as a []interface{} if it is a slice shape produced by the
// decoders or by callers building queries by hand
func AsSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case bson.A:
		return []interface{}(s), true
	case []string:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []bson.M:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []map[string]interface{}:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []int:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []int64:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []float64:
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	default:
		return nil, false
	}
}

// IsOperator reports whether key carries the operator sigil
func IsOperator(key string) bool {
	return strings.HasPrefix(key, "$")
}

// IsSubQuery reports whether v is a non-empty object whose keys are all operators
func IsSubQuery(v interface{}) bool {
	m, ok := AsMap(v)
	if !ok || len(m) == 0 {
		return false
	}
	for k := range m {
		if !IsOperator(k) {
			return false
		}
	}
	return true
}

// IsBlank reports whether v is nil or an empty string
func IsBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// Clone returns a deep copy of maps and slices in v. Other values are shared.
func Clone(v interface{}) interface{} {
	if m, ok := AsMap(v); ok {
		out := make(bson.M, len(m))
		for k, e := range m {
			out[k] = Clone(e)
		}
		return out
	}
	if s, ok := AsSlice(v); ok {
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = Clone(e)
		}
		return out
	}
	return v
}

// CloneMap returns a deep copy of m
func CloneMap(m bson.M) bson.M {
	if m == nil {
		return nil
	}
	out, _ := AsMap(Clone(m))
	return out
}
