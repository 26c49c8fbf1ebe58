// Package board interprets board records: declarative descriptions of one API
// operation over a schema. A board names the filters a request may drive, the
// sort order and the columns returned to the caller.
package board

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conduit-lang/boardstore/internal/errs"
	"github.com/conduit-lang/boardstore/internal/orm/doc"
	"github.com/conduit-lang/boardstore/internal/orm/query"
	"go.mongodb.org/mongo-driver/bson"
)

// Collection holds the board records
const Collection = "board"

// Filter binds a request parameter to a field comparison
type Filter struct {
	Key       string
	Operator  query.Operator
	Parameter string
	Default   interface{}
	Group     string
}

// param returns the request parameter feeding the filter
func (f Filter) param() string {
	if f.Parameter != "" {
		return f.Parameter
	}
	return f.Key
}

// Sort is one sort specification. A dynamic sort takes its key from the
// request.
type Sort struct {
	Key     string
	Order   string
	Index   int
	Dynamic bool
}

// Select marks a column as visible, optionally renamed and formatted
type Select struct {
	Key    string
	Select bool
	Alias  string
	Format string
}

// Board is a parsed board record
type Board struct {
	Schema  string
	API     string
	Type    string
	Filters []Filter
	Sorts   []Sort
	Selects []Select
}

// Parse validates a raw board record
func Parse(raw bson.M) (*Board, error) {
	b := &Board{
		Schema: stringOf(raw["schema"]),
		API:    stringOf(raw["api"]),
		Type:   stringOf(raw["type"]),
	}
	if b.Schema == "" {
		return nil, errs.Config(errs.CodeInvalidBoard, "board %q has no schema", b.API)
	}
	if b.API == "" {
		return nil, errs.Config(errs.CodeInvalidBoard, "board on %q has no api", b.Schema)
	}

	for i, item := range entries(raw["filters"]) {
		f, err := parseFilter(item)
		if err != nil {
			return nil, fmt.Errorf("board %s filter %d: %w", b.API, i, err)
		}
		b.Filters = append(b.Filters, f)
	}
	for _, item := range entries(raw["sorts"]) {
		b.Sorts = append(b.Sorts, parseSort(item))
	}
	for i, item := range entries(raw["selects"]) {
		s, err := parseSelect(item)
		if err != nil {
			return nil, fmt.Errorf("board %s select %d: %w", b.API, i, err)
		}
		b.Selects = append(b.Selects, s)
	}
	return b, nil
}

// ParseAll parses a board collection and indexes it by api name
func ParseAll(raw []bson.M) (map[string]*Board, error) {
	out := make(map[string]*Board, len(raw))
	for _, r := range raw {
		b, err := Parse(r)
		if err != nil {
			return nil, err
		}
		if _, dup := out[b.API]; dup {
			return nil, errs.Config(errs.CodeInvalidBoard, "duplicate board api %q", b.API)
		}
		out[b.API] = b
	}
	return out, nil
}

func parseFilter(raw bson.M) (Filter, error) {
	f := Filter{
		Key:       stringOf(raw["key"]),
		Parameter: stringOf(raw["parameter"]),
		Default:   raw["default"],
		Group:     stringOf(raw["group"]),
	}
	if f.Key == "" {
		return f, errs.Config(errs.CodeInvalidBoard, "filter has no key")
	}

	name := stringOf(raw["operator"])
	if name == "" {
		name = query.OpEq.String()
	}
	op, err := query.Lookup(name)
	if err != nil {
		return f, err
	}
	f.Operator = op
	return f, nil
}

func parseSort(raw bson.M) Sort {
	s := Sort{
		Key:   stringOf(raw["key"]),
		Order: stringOf(raw["order"]),
		Index: intOf(raw["index"]),
	}
	if s.Order == "" {
		s.Order = "asc"
	}
	switch v := raw["dynamic"].(type) {
	case bool:
		s.Dynamic = v
	case string:
		s.Dynamic = v == "dynamic" || v == "true"
	}
	if strings.EqualFold(stringOf(raw["type"]), "dynamic") {
		s.Dynamic = true
	}
	return s
}

func parseSelect(raw bson.M) (Select, error) {
	s := Select{
		Key:    stringOf(raw["key"]),
		Select: flag(raw["select"]),
		Alias:  stringOf(raw["alias"]),
		Format: strings.ToLower(stringOf(raw["format"])),
	}
	if s.Key == "" {
		return s, errs.Config(errs.CodeInvalidBoard, "select has no key")
	}
	if s.Format != "" {
		if _, ok := formatters[s.Format]; !ok {
			return s, errs.Config(errs.CodeUnknownFormat, "unknown format %q on %s", s.Format, s.Key)
		}
	}
	return s, nil
}

func entries(v interface{}) []bson.M {
	items, ok := doc.AsSlice(v)
	if !ok {
		return nil
	}
	out := make([]bson.M, 0, len(items))
	for _, item := range items {
		if m, ok := doc.AsMap(item); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringOf(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return fmt.Sprint(s)
	}
}

func intOf(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(strings.TrimSpace(n))
		return i
	default:
		return 0
	}
}

func flag(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "1"
	case nil:
		return false
	default:
		return intOf(v) != 0
	}
}
