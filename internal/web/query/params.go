// Package query reads the board request parameters from an HTTP request.
//
// Parameters come from the query string. A POST with a JSON body carries the
// same names as a JSON object instead; body values win over query values.
// Condition and free queries are decoded as MongoDB extended JSON so callers
// can send {"$oid": ...} and {"$date": ...} values.
package query

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/conduit-lang/boardstore/internal/board"
	"github.com/conduit-lang/boardstore/internal/errs"
	"go.mongodb.org/mongo-driver/bson"
)

// conditionPattern matches query parameters like filter[key] or condition[key]
var conditionPattern = regexp.MustCompile(`^(?:filter|condition)\[([^\]]+)\]$`)

// MaxBodySize bounds a JSON request body
const MaxBodySize = 1 << 20

// body is the JSON form of the request parameters
type body struct {
	Condition json.RawMessage `json:"condition"`
	Filter    json.RawMessage `json:"filter"`
	Free      json.RawMessage `json:"free"`
	ID        interface{}     `json:"id"`
	Sort      interface{}     `json:"sort"`
	Order     interface{}     `json:"order"`
	Select    interface{}     `json:"select"`
	Field     interface{}     `json:"field"`
	Skip      *int64          `json:"skip"`
	Limit     *int64          `json:"limit"`
}

// Parse reads board.Params from r
func Parse(r *http.Request) (board.Params, error) {
	p, err := fromValues(r.URL.Query())
	if err != nil {
		return p, err
	}
	if r.Method != http.MethodPost || !isJSON(r) {
		return p, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize))
	if err != nil {
		return p, invalid("read body: %v", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return p, nil
	}
	var b body
	if err := json.Unmarshal(raw, &b); err != nil {
		return p, invalid("decode body: %v", err)
	}
	return merge(p, b)
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func fromValues(q url.Values) (board.Params, error) {
	var p board.Params
	var err error

	cond := first(q, "condition", "filter")
	if cond != "" {
		if p.Condition, err = document("condition", []byte(cond)); err != nil {
			return p, err
		}
	}
	for key, values := range q {
		m := conditionPattern.FindStringSubmatch(key)
		if len(m) != 2 || len(values) == 0 {
			continue
		}
		if p.Condition == nil {
			p.Condition = bson.M{}
		}
		p.Condition[m[1]] = values[0]
	}

	if free := q.Get("free"); free != "" {
		if p.Free, err = document("free", []byte(free)); err != nil {
			return p, err
		}
	}
	if id := q.Get("id"); id != "" {
		p.ID = id
	}

	p.Sort = list(first(q, "sort"))
	p.Order = list(first(q, "order"))
	p.Select = list(first(q, "select", "field"))

	if p.Skip, err = count(q.Get("skip"), "skip"); err != nil {
		return p, err
	}
	if p.Limit, err = count(q.Get("limit"), "limit"); err != nil {
		return p, err
	}
	return p, nil
}

func merge(p board.Params, b body) (board.Params, error) {
	var err error
	for _, raw := range []json.RawMessage{b.Condition, b.Filter} {
		if len(raw) == 0 {
			continue
		}
		if p.Condition, err = document("condition", raw); err != nil {
			return p, err
		}
		break
	}
	if len(b.Free) > 0 {
		if p.Free, err = document("free", b.Free); err != nil {
			return p, err
		}
	}
	if b.ID != nil {
		p.ID = b.ID
	}
	if v := stringList(b.Sort); v != nil {
		p.Sort = v
	}
	if v := stringList(b.Order); v != nil {
		p.Order = v
	}
	if v := stringList(b.Select); v != nil {
		p.Select = v
	} else if v := stringList(b.Field); v != nil {
		p.Select = v
	}
	if b.Skip != nil {
		if *b.Skip < 0 {
			return p, invalid("skip must not be negative")
		}
		p.Skip = *b.Skip
	}
	if b.Limit != nil {
		if *b.Limit < 0 {
			return p, invalid("limit must not be negative")
		}
		p.Limit = *b.Limit
	}
	return p, nil
}

// document decodes an extended JSON object. JSON null yields nil.
func document(name string, raw []byte) (bson.M, error) {
	if strings.TrimSpace(string(raw)) == "null" {
		return nil, nil
	}
	var m bson.M
	if err := bson.UnmarshalExtJSON(raw, false, &m); err != nil {
		return nil, invalid("%s is not a JSON object: %v", name, err)
	}
	return m, nil
}

func count(s, name string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, invalid("%s must be a non-negative integer, got %q", name, s)
	}
	return n, nil
}

func first(q url.Values, names ...string) string {
	for _, n := range names {
		if v := q.Get(n); v != "" {
			return v
		}
	}
	return ""
}

// list splits a comma separated parameter, dropping empty items
func list(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// stringList accepts a JSON string list or a comma separated string
func stringList(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return list(t)
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := fmt.Sprint(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return errs.Config(errs.CodeInvalidParams, format, args...)
}
