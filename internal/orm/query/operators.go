// Package query compiles declarative comparison operators into native query
// document fragments
package query

import (
	"strings"

	"github.com/conduit-lang/boardstore/internal/errs"
	"github.com/conduit-lang/boardstore/internal/orm/coerce"
	"github.com/conduit-lang/boardstore/internal/orm/doc"
	"github.com/conduit-lang/boardstore/internal/orm/schema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Operator represents a comparison or logical operator
type Operator int

const (
	OpEq Operator = iota + 1
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNin
	OpAll
	OpRegex
	OpOptions
	OpExists
	OpOr
	OpAnd
	OpNor
)

// Operand describes how the payload of an operator is coerced
type Operand int

const (
	// OperandValue is coerced with the descriptor of the surrounding field
	OperandValue Operand = iota
	// OperandList is split into elements, each coerced like OperandValue
	OperandList
	// OperandRegex always becomes a native regular expression
	OperandRegex
	// OperandBool always becomes a boolean
	OperandBool
	// OperandText is kept as a string
	OperandText
	// OperandBranches holds sub-documents mapped at the current schema level
	OperandBranches
)

var operatorNames = map[Operator]string{
	OpEq:      "$eq",
	OpNe:      "$ne",
	OpGt:      "$gt",
	OpGte:     "$gte",
	OpLt:      "$lt",
	OpLte:     "$lte",
	OpIn:      "$in",
	OpNin:     "$nin",
	OpAll:     "$all",
	OpRegex:   "$regex",
	OpOptions: "$options",
	OpExists:  "$exists",
	OpOr:      "$or",
	OpAnd:     "$and",
	OpNor:     "$nor",
}

var operatorsByName = func() map[string]Operator {
	m := make(map[string]Operator, len(operatorNames))
	for op, name := range operatorNames {
		m[name] = op
	}
	return m
}()

// String returns the native name of the operator
func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return "unknown"
}

// Operand returns how the operator payload is coerced
func (o Operator) Operand() Operand {
	switch o {
	case OpIn, OpNin, OpAll:
		return OperandList
	case OpRegex:
		return OperandRegex
	case OpExists:
		return OperandBool
	case OpOptions:
		return OperandText
	case OpOr, OpAnd, OpNor:
		return OperandBranches
	default:
		return OperandValue
	}
}

// IsLogical returns true for operators combining whole sub-documents
func (o Operator) IsLogical() bool {
	return o.Operand() == OperandBranches
}

// Lookup resolves an operator name. The sigil is optional and case is
// ignored. An unknown name is a configuration error.
func Lookup(name string) (Operator, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(key, "$") {
		key = "$" + key
	}
	op, ok := operatorsByName[key]
	if !ok {
		return 0, errs.Config(errs.CodeUnknownOperator, "unknown operator: %q", name)
	}
	return op, nil
}

// Compile builds the query fragment for field op value
func Compile(op Operator, field string, value interface{}) (bson.M, error) {
	if _, ok := operatorNames[op]; !ok {
		return nil, errs.Config(errs.CodeUnknownOperator, "unknown operator: %d", int(op))
	}

	switch op.Operand() {
	case OperandBranches:
		return bson.M{op.String(): Branches(value)}, nil
	case OperandList:
		return bson.M{field: bson.M{op.String(): SplitList(value)}}, nil
	case OperandBool:
		return bson.M{field: bson.M{op.String(): Bool(value)}}, nil
	case OperandRegex:
		return bson.M{field: bson.M{op.String(): Regex(value)}}, nil
	default:
		return bson.M{field: bson.M{op.String(): value}}, nil
	}
}

// CompileName is Compile with an operator given by name
func CompileName(name, field string, value interface{}) (bson.M, error) {
	op, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return Compile(op, field, value)
}

// SplitList returns value as a list. Strings are split on commas and
// trimmed, other scalars become a single element.
func SplitList(value interface{}) []interface{} {
	if items, ok := doc.AsSlice(value); ok {
		return items
	}
	if s, ok := value.(string); ok {
		if strings.TrimSpace(s) == "" {
			return []interface{}{}
		}
		parts := strings.Split(s, ",")
		out := make([]interface{}, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	}
	if value == nil {
		return []interface{}{}
	}
	return []interface{}{value}
}

// Branches returns value as a list of sub-documents
func Branches(value interface{}) []interface{} {
	if m, ok := doc.AsMap(value); ok {
		return []interface{}{m}
	}
	if items, ok := doc.AsSlice(value); ok {
		return items
	}
	return []interface{}{}
}

var (
	converters = coerce.MustRegistry()
	boolField  = &schema.Field{Type: schema.TypeBoolean}
	regexField = &schema.Field{Type: schema.TypeRegexp}
)

// Bool coerces an $exists payload
func Bool(value interface{}) bool {
	b, _ := converters.ForQuery(value, boolField, coerce.DefaultContext()).(bool)
	return b
}

// Regex coerces a $regex payload
func Regex(value interface{}) interface{} {
	switch v := value.(type) {
	case primitive.Regex:
		return v
	case string:
		return coerce.ParseRegex(v)
	default:
		return converters.ForQuery(value, regexField, coerce.DefaultContext())
	}
}

// Merge combines src into dst. Two operator documents for the same field are
// merged key by key, logical branches are concatenated and anything else is
// replaced.
func Merge(dst, src bson.M) bson.M {
	if dst == nil {
		dst = bson.M{}
	}
	for k, v := range src {
		existing, ok := dst[k]
		if !ok {
			dst[k] = v
			continue
		}

		if op, err := Lookup(k); doc.IsOperator(k) && err == nil && op.IsLogical() {
			dst[k] = append(Branches(existing), Branches(v)...)
			continue
		}

		em, eok := doc.AsMap(existing)
		vm, vok := doc.AsMap(v)
		if eok && vok && doc.IsSubQuery(em) && doc.IsSubQuery(vm) {
			merged := make(bson.M, len(em)+len(vm))
			for ek, ev := range em {
				merged[ek] = ev
			}
			for vk, vv := range vm {
				merged[vk] = vv
			}
			dst[k] = merged
			continue
		}
		dst[k] = v
	}
	return dst
}
