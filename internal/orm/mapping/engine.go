// Package mapping applies a schema definition to whole documents.
//
// FillDefaults injects declared defaults. ForWrite and ForQuery walk a
// document depth first, mirror the schema tree, drop undeclared keys and
// convert every declared value through the coerce registry. Operator keys are
// resolved through the query package and their payloads are mapped with the
// descriptor of the surrounding field.
package mapping

import (
	"fmt"

	"github.com/conduit-lang/boardstore/internal/orm/coerce"
	"github.com/conduit-lang/boardstore/internal/orm/doc"
	"github.com/conduit-lang/boardstore/internal/orm/query"
	"github.com/conduit-lang/boardstore/internal/orm/schema"
	"go.mongodb.org/mongo-driver/bson"
)

type mode int

const (
	modeWrite mode = iota
	modeQuery
)

// Engine maps documents against schema definitions. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	types *coerce.Registry
}

// New creates an engine over the given converters
func New(types *coerce.Registry) *Engine {
	return &Engine{types: types}
}

// ForWrite coerces a document for storage. The result only contains
// declared keys.
func (e *Engine) ForWrite(def schema.Definition, in bson.M, ctx coerce.Context) (bson.M, error) {
	return e.mapDocument(def, in, modeWrite, ctx)
}

// ForWriteAll coerces every document of a batch
func (e *Engine) ForWriteAll(def schema.Definition, in []bson.M, ctx coerce.Context) ([]bson.M, error) {
	out := make([]bson.M, len(in))
	for i, d := range in {
		mapped, err := e.ForWrite(def, d, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = mapped
	}
	return out, nil
}

// ForQuery coerces a query condition. Undeclared keys are dropped and
// operator payloads are typed after the field they apply to.
func (e *Engine) ForQuery(def schema.Definition, in bson.M, ctx coerce.Context) (bson.M, error) {
	return e.mapDocument(def, in, modeQuery, ctx)
}

func (e *Engine) convert(raw interface{}, f *schema.Field, m mode, ctx coerce.Context) interface{} {
	if m == modeQuery {
		return e.types.ForQuery(raw, f, ctx)
	}
	return e.types.ForWrite(raw, f, ctx)
}

func (e *Engine) mapDocument(def schema.Definition, in bson.M, m mode, ctx coerce.Context) (bson.M, error) {
	out := make(bson.M, len(in))
	for key, val := range in {
		if doc.IsOperator(key) {
			mapped, err := e.mapTopLevelOperator(def, key, val, m, ctx)
			if err != nil {
				return nil, err
			}
			out[key] = mapped
			continue
		}

		f, ok := def.Resolve(key)
		if !ok {
			continue
		}
		if f == nil {
			out[key] = doc.Clone(val)
			continue
		}
		mapped, err := e.mapValue(f, val, m, ctx)
		if err != nil {
			return nil, err
		}
		out[key] = mapped
	}
	return out, nil
}

// mapTopLevelOperator handles operators that stand in place of a field, such
// as $or. Their branches are mapped at the current schema level.
func (e *Engine) mapTopLevelOperator(def schema.Definition, key string, val interface{}, m mode, ctx coerce.Context) (interface{}, error) {
	op, err := query.Lookup(key)
	if err != nil {
		return nil, err
	}
	if !op.IsLogical() {
		return val, nil
	}

	branches := query.Branches(val)
	out := make([]interface{}, 0, len(branches))
	for _, b := range branches {
		bm, ok := doc.AsMap(b)
		if !ok {
			continue
		}
		mapped, err := e.mapDocument(def, bm, m, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, mapped)
	}
	return out, nil
}

func (e *Engine) mapValue(f *schema.Field, val interface{}, m mode, ctx coerce.Context) (interface{}, error) {
	if doc.IsSubQuery(val) {
		return e.mapSubQuery(f, val, m, ctx)
	}
	if !f.Structured() {
		return e.convert(val, f, m, ctx), nil
	}

	switch f.Type {
	case schema.TypeObject:
		if obj, ok := doc.AsMap(val); ok {
			return e.mapDocument(f.Fields, obj, m, ctx)
		}
	case schema.TypeArray:
		if items, ok := doc.AsSlice(val); ok {
			return e.mapElements(f.Elem, items, m, ctx)
		}
		if obj, ok := doc.AsMap(val); ok {
			mapped, err := e.mapDocument(f.Elem.Fields, obj, m, ctx)
			if err != nil {
				return nil, err
			}
			if m == modeQuery {
				return mapped, nil
			}
			return []interface{}{mapped}, nil
		}
	}
	return e.convert(val, f, m, ctx), nil
}

func (e *Engine) mapElements(elem *schema.Field, items []interface{}, m mode, ctx coerce.Context) ([]interface{}, error) {
	out := make([]interface{}, len(items))
	for i, item := range items {
		obj, ok := doc.AsMap(item)
		if !ok {
			out[i] = e.convert(item, elem, m, ctx)
			continue
		}
		mapped, err := e.mapDocument(elem.Fields, obj, m, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = mapped
	}
	return out, nil
}

// mapSubQuery maps {op: operand, ...} with the descriptor of the field the
// sub-query applies to
func (e *Engine) mapSubQuery(f *schema.Field, val interface{}, m mode, ctx coerce.Context) (interface{}, error) {
	sub, _ := doc.AsMap(val)
	out := make(bson.M, len(sub))
	for name, operand := range sub {
		op, err := query.Lookup(name)
		if err != nil {
			return nil, err
		}

		switch op.Operand() {
		case query.OperandList:
			items := query.SplitList(operand)
			mapped := make([]interface{}, len(items))
			for i, item := range items {
				v, err := e.mapValue(f, item, m, ctx)
				if err != nil {
					return nil, err
				}
				mapped[i] = v
			}
			out[name] = mapped
		case query.OperandRegex:
			out[name] = query.Regex(operand)
		case query.OperandBool:
			out[name] = query.Bool(operand)
		case query.OperandText:
			if s, ok := operand.(string); ok {
				out[name] = s
			} else {
				out[name] = fmt.Sprint(operand)
			}
		case query.OperandBranches:
			out[name] = operand
		default:
			v, err := e.mapValue(f, operand, m, ctx)
			if err != nil {
				return nil, err
			}
			out[name] = v
		}
	}
	return out, nil
}
