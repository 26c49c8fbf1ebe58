package store

import (
	"context"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/conduit-lang/boardstore/internal/orm/doc"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryScheme selects the in-process store in a database URI
const MemoryScheme = "memory://"

// MemoryStore is an in-process document store. It understands the subset of
// the query language produced by the board builder and is used for local runs
// and tests.
type MemoryStore struct {
	mu  sync.RWMutex
	dbs map[string]map[string][]bson.M
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{dbs: make(map[string]map[string][]bson.M)}
}

// Dialer returns a Dialer handing out handles on this store
func (m *MemoryStore) Dialer() Dialer {
	return func(_ context.Context, name string) (Conn, error) {
		return &memoryConn{store: m, db: name}, nil
	}
}

// Seed appends documents to a collection as they are
func (m *MemoryStore) Seed(db, collection string, docs ...bson.M) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cols := m.ensure(db)
	for _, d := range docs {
		cols[collection] = append(cols[collection], doc.CloneMap(d))
	}
}

func (m *MemoryStore) ensure(db string) map[string][]bson.M {
	cols, ok := m.dbs[db]
	if !ok {
		cols = make(map[string][]bson.M)
		m.dbs[db] = cols
	}
	return cols
}

func (m *MemoryStore) docs(db, collection string) []bson.M {
	return m.dbs[db][collection]
}

type memoryConn struct {
	store *MemoryStore
	db    string
}

func (c *memoryConn) Find(_ context.Context, collection string, filter bson.M, opts FindOptions) ([]bson.M, error) {
	c.store.mu.RLock()
	var out []bson.M
	for _, d := range c.store.docs(c.db, collection) {
		if Match(d, filter) {
			out = append(out, doc.CloneMap(d))
		}
	}
	c.store.mu.RUnlock()

	if len(opts.Sort) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, e := range opts.Sort {
				a, _ := lookup(out[i], e.Key)
				b, _ := lookup(out[j], e.Key)
				cmp, _ := compare(a, b)
				if cmp == 0 {
					continue
				}
				if dir, _ := e.Value.(int); dir < 0 {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}
	if opts.Skip > 0 {
		if opts.Skip >= int64(len(out)) {
			out = nil
		} else {
			out = out[opts.Skip:]
		}
	}
	if opts.Limit > 0 && opts.Limit < int64(len(out)) {
		out = out[:opts.Limit]
	}
	if len(opts.Projection) > 0 {
		for i, d := range out {
			out[i] = project(d, opts.Projection)
		}
	}
	if out == nil {
		out = []bson.M{}
	}
	return out, nil
}

func (c *memoryConn) Count(ctx context.Context, collection string, filter bson.M) (int64, error) {
	docs, err := c.Find(ctx, collection, filter, FindOptions{})
	return int64(len(docs)), err
}

func (c *memoryConn) Insert(_ context.Context, collection string, docs []bson.M) ([]interface{}, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	cols := c.store.ensure(c.db)

	ids := make([]interface{}, len(docs))
	for i, d := range docs {
		stored := doc.CloneMap(d)
		if stored == nil {
			stored = bson.M{}
		}
		if _, ok := stored["_id"]; !ok {
			stored["_id"] = primitive.NewObjectID()
		}
		ids[i] = stored["_id"]
		cols[collection] = append(cols[collection], stored)
	}
	return ids, nil
}

func (c *memoryConn) Update(_ context.Context, collection string, filter, set bson.M) (int64, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	var n int64
	for _, d := range c.store.docs(c.db, collection) {
		if !Match(d, filter) {
			continue
		}
		for k, v := range set {
			setPath(d, strings.Split(k, "."), doc.Clone(v))
		}
		n++
	}
	return n, nil
}

func (c *memoryConn) Close(context.Context) error {
	return nil
}

// Match reports whether d satisfies filter
func Match(d bson.M, filter bson.M) bool {
	for key, cond := range filter {
		switch key {
		case "$or":
			if !anyBranch(d, cond) {
				return false
			}
		case "$and":
			for _, b := range branches(cond) {
				if !Match(d, b) {
					return false
				}
			}
		case "$nor":
			if anyBranch(d, cond) {
				return false
			}
		default:
			val, found := lookup(d, key)
			if !matchValue(val, found, cond) {
				return false
			}
		}
	}
	return true
}

func branches(v interface{}) []bson.M {
	items, _ := doc.AsSlice(v)
	out := make([]bson.M, 0, len(items))
	for _, item := range items {
		if m, ok := doc.AsMap(item); ok {
			out = append(out, m)
		}
	}
	return out
}

func anyBranch(d bson.M, cond interface{}) bool {
	for _, b := range branches(cond) {
		if Match(d, b) {
			return true
		}
	}
	return false
}

func matchValue(val interface{}, found bool, cond interface{}) bool {
	sub, ok := doc.AsMap(cond)
	if !ok || !doc.IsSubQuery(sub) {
		return contains(val, cond)
	}
	for op, operand := range sub {
		if !matchOperator(op, val, found, operand, sub) {
			return false
		}
	}
	return true
}

func matchOperator(op string, val interface{}, found bool, operand interface{}, sub bson.M) bool {
	switch op {
	case "$eq":
		return contains(val, operand)
	case "$ne":
		return !contains(val, operand)
	case "$gt", "$gte", "$lt", "$lte":
		cmp, ok := compare(val, operand)
		if !ok || !found {
			return false
		}
		switch op {
		case "$gt":
			return cmp > 0
		case "$gte":
			return cmp >= 0
		case "$lt":
			return cmp < 0
		default:
			return cmp <= 0
		}
	case "$in":
		items, _ := doc.AsSlice(operand)
		for _, item := range items {
			if contains(val, item) {
				return true
			}
		}
		return false
	case "$nin":
		items, _ := doc.AsSlice(operand)
		for _, item := range items {
			if contains(val, item) {
				return false
			}
		}
		return true
	case "$all":
		items, _ := doc.AsSlice(operand)
		for _, item := range items {
			if !contains(val, item) {
				return false
			}
		}
		return true
	case "$exists":
		want, _ := operand.(bool)
		return found == want
	case "$regex":
		opts, _ := sub["$options"].(string)
		return matchRegex(val, operand, opts)
	case "$options":
		return true
	default:
		return false
	}
}

func matchRegex(val, pattern interface{}, opts string) bool {
	var expr string
	switch p := pattern.(type) {
	case primitive.Regex:
		expr = p.Pattern
		if opts == "" {
			opts = p.Options
		}
	case string:
		expr = p
	default:
		return false
	}
	if strings.Contains(opts, "i") {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	if items, ok := doc.AsSlice(val); ok {
		for _, item := range items {
			if s, ok := item.(string); ok && re.MatchString(s) {
				return true
			}
		}
		return false
	}
	s, ok := val.(string)
	return ok && re.MatchString(s)
}

// contains compares scalars, or checks membership when val is an array
func contains(val, want interface{}) bool {
	if equal(val, want) {
		return true
	}
	if items, ok := doc.AsSlice(val); ok {
		for _, item := range items {
			if equal(item, want) {
				return true
			}
		}
	}
	return false
}

func equal(a, b interface{}) bool {
	if cmp, ok := compare(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare orders numbers, dates and strings. The second result is false for
// values of different kinds.
func compare(a, b interface{}) (int, bool) {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return sign(fa - fb), true
		}
		return 0, false
	}
	if ta, ok := instant(a); ok {
		if tb, ok := instant(b); ok {
			return ta.Compare(tb), true
		}
		return 0, false
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb), true
		}
	}
	if ia, ok := a.(primitive.ObjectID); ok {
		if ib, ok := b.(primitive.ObjectID); ok {
			return strings.Compare(ia.Hex(), ib.Hex()), true
		}
	}
	return 0, false
}

func sign(f float64) int {
	switch {
	case f < 0:
		return -1
	case f > 0:
		return 1
	default:
		return 0
	}
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func instant(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	default:
		return time.Time{}, false
	}
}

// lookup walks a dotted path. Numeric segments index arrays; other segments
// on arrays collect the field of every element.
func lookup(d bson.M, key string) (interface{}, bool) {
	var cur interface{} = d
	for _, part := range strings.Split(key, ".") {
		if m, ok := doc.AsMap(cur); ok {
			v, found := m[part]
			if !found {
				return nil, false
			}
			cur = v
			continue
		}
		items, ok := doc.AsSlice(cur)
		if !ok {
			return nil, false
		}
		if i, err := strconv.Atoi(part); err == nil {
			if i < 0 || i >= len(items) {
				return nil, false
			}
			cur = items[i]
			continue
		}
		var collected []interface{}
		for _, item := range items {
			if m, ok := doc.AsMap(item); ok {
				if v, found := m[part]; found {
					collected = append(collected, v)
				}
			}
		}
		if len(collected) == 0 {
			return nil, false
		}
		cur = collected
	}
	return cur, true
}

func setPath(d bson.M, path []string, v interface{}) {
	if len(path) == 1 {
		d[path[0]] = v
		return
	}
	child, ok := doc.AsMap(d[path[0]])
	if !ok {
		child = bson.M{}
	}
	setPath(child, path[1:], v)
	d[path[0]] = child
}

// project keeps the top level fields named by the projection and the id
func project(d bson.M, projection bson.M) bson.M {
	out := bson.M{}
	if id, ok := d["_id"]; ok {
		out["_id"] = id
	}
	for key := range projection {
		top := strings.SplitN(key, ".", 2)[0]
		if v, ok := d[top]; ok {
			out[top] = v
		}
	}
	return out
}
