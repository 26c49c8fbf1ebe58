package coerce

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/conduit-lang/boardstore/internal/orm/doc"
	"github.com/conduit-lang/boardstore/internal/orm/schema"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func stringForWrite(_ *Registry, raw interface{}, _ *schema.Field, _ Context) interface{} {
	return toString(raw)
}

// stringForQuery lets native regular expressions through untouched
func stringForQuery(_ *Registry, raw interface{}, _ *schema.Field, _ Context) interface{} {
	switch v := raw.(type) {
	case primitive.Regex:
		return v
	case *regexp.Regexp:
		return primitive.Regex{Pattern: v.String()}
	}
	return toString(raw)
}

func toString(raw interface{}) interface{} {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case primitive.ObjectID:
		return v.Hex()
	case time.Time:
		return v.Format(time.RFC3339)
	case primitive.DateTime:
		return v.Time().UTC().Format(time.RFC3339)
	case primitive.Regex:
		return v.Pattern
	}

	if _, ok := doc.AsMap(raw); ok {
		return marshalString(raw)
	}
	if _, ok := doc.AsSlice(raw); ok {
		return marshalString(raw)
	}
	return nil
}

func marshalString(v interface{}) interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

// numberConvert keeps native numbers and parses numeric strings. Integral
// strings become int64, everything else float64. NaN and infinities are nil.
func numberConvert(_ *Registry, raw interface{}, _ *schema.Field, _ Context) interface{} {
	switch v := raw.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return v
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil
		}
		return v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case json.Number:
		return parseNumber(v.String())
	case string:
		return parseNumber(v)
	default:
		return nil
	}
}

func parseNumber(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// booleanConvert treats "false", "0", 0 and empty values as false
func booleanConvert(_ *Registry, raw interface{}, _ *schema.Field, _ Context) interface{} {
	switch v := raw.(type) {
	case nil:
		return nil
	case bool:
		return v
	case string:
		s := strings.TrimSpace(v)
		return s != "" && s != "false" && s != "0"
	case int:
		return v != 0
	case int32:
		return v != 0
	case int64:
		return v != 0
	case float32:
		return v != 0
	case float64:
		return v != 0 && !math.IsNaN(v)
	default:
		return true
	}
}

// offsetLayouts carry their own zone
var offsetLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
}

// localLayouts are interpreted in the context timezone
var localLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-1-2 15:04:05",
	"2006-1-2",
	"2006-01",
}

// dateConvert passes native dates through and parses strings, normalizing
// slashes to dashes
func dateConvert(_ *Registry, raw interface{}, _ *schema.Field, ctx Context) interface{} {
	switch v := raw.(type) {
	case time.Time:
		return v
	case primitive.DateTime:
		return v.Time()
	case string:
		t, ok := ParseDate(v, ctx.location())
		if !ok {
			return nil
		}
		return t
	default:
		return nil
	}
}

// ParseDate parses s in loc. Offsets in s take precedence over loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "/", "-")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// objectIDConvert accepts 24 character hex strings and maps slices element-wise
func objectIDConvert(r *Registry, raw interface{}, field *schema.Field, ctx Context) interface{} {
	switch v := raw.(type) {
	case primitive.ObjectID:
		return v
	case string:
		if len(v) != 24 {
			return nil
		}
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			return nil
		}
		return id
	}

	if items, ok := doc.AsSlice(raw); ok {
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = objectIDConvert(r, item, field, ctx)
		}
		return out
	}
	return nil
}

// regexpConvert accepts native expressions and strings, with an optional
// /pattern/flags form
func regexpConvert(_ *Registry, raw interface{}, _ *schema.Field, _ Context) interface{} {
	switch v := raw.(type) {
	case primitive.Regex:
		return v
	case *regexp.Regexp:
		return primitive.Regex{Pattern: v.String()}
	case string:
		return ParseRegex(v)
	default:
		return nil
	}
}

// ParseRegex converts "/pattern/flags" or a bare pattern to a native regex
func ParseRegex(s string) primitive.Regex {
	if len(s) > 1 && strings.HasPrefix(s, "/") {
		if end := strings.LastIndex(s, "/"); end > 0 {
			return primitive.Regex{Pattern: s[1:end], Options: s[end+1:]}
		}
	}
	return primitive.Regex{Pattern: s}
}
