// Package coerce converts untyped input values into the native type declared
// by a schema field.
//
// Every converter is total: a value of the wrong shape becomes nil instead of
// an error, so that partially invalid input can still be stored and reported
// by a separate validation step.
package coerce

import (
	"fmt"
	"time"

	"github.com/conduit-lang/boardstore/internal/errs"
	"github.com/conduit-lang/boardstore/internal/orm/schema"
)

// Context carries the request-scoped settings used by converters
type Context struct {
	// Location is the timezone used to interpret dates without an offset
	Location *time.Location
}

// DefaultContext returns a context in UTC
func DefaultContext() Context {
	return Context{Location: time.UTC}
}

func (c Context) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// ConvertFunc converts a raw value for the given field
type ConvertFunc func(r *Registry, raw interface{}, field *schema.Field, ctx Context) interface{}

// Converter is the pair of conversions a type provides
type Converter struct {
	ForWrite ConvertFunc
	ForQuery ConvertFunc
}

// Registry maps every schema type to its converter
type Registry struct {
	converters map[schema.Type]Converter
}

// builtins holds the converter of every recognized type
var builtins = map[schema.Type]Converter{
	schema.TypeString:   {ForWrite: stringForWrite, ForQuery: stringForQuery},
	schema.TypeNumber:   {ForWrite: numberConvert, ForQuery: numberConvert},
	schema.TypeBoolean:  {ForWrite: booleanConvert, ForQuery: booleanConvert},
	schema.TypeDate:     {ForWrite: dateConvert, ForQuery: dateConvert},
	schema.TypeObjectID: {ForWrite: objectIDConvert, ForQuery: objectIDConvert},
	schema.TypeRegexp:   {ForWrite: regexpConvert, ForQuery: regexpConvert},
	schema.TypeObject:   {ForWrite: objectForWrite, ForQuery: objectForQuery},
	schema.TypeArray:    {ForWrite: arrayForWrite, ForQuery: arrayForQuery},
}

// NewRegistry creates a registry of the built-in converters. It fails if any
// schema type lacks a converter.
func NewRegistry() (*Registry, error) {
	return newRegistry(builtins)
}

func newRegistry(converters map[schema.Type]Converter) (*Registry, error) {
	for _, t := range schema.Types {
		c, ok := converters[t]
		if !ok || c.ForWrite == nil || c.ForQuery == nil {
			return nil, errs.Config(errs.CodeUnknownType, "no converter registered for type %s", t)
		}
	}
	return &Registry{converters: converters}, nil
}

// MustRegistry is like NewRegistry but panics on error
func MustRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(fmt.Sprintf("coerce: %v", err))
	}
	return r
}

// ForWrite converts raw to the native representation of field for storage
func (r *Registry) ForWrite(raw interface{}, field *schema.Field, ctx Context) interface{} {
	if field == nil {
		return raw
	}
	c, ok := r.converters[field.Type]
	if !ok {
		return nil
	}
	return c.ForWrite(r, raw, field, ctx)
}

// ForQuery converts raw to the native representation of field for use in a
// query condition
func (r *Registry) ForQuery(raw interface{}, field *schema.Field, ctx Context) interface{} {
	if field == nil {
		return raw
	}
	c, ok := r.converters[field.Type]
	if !ok {
		return nil
	}
	return c.ForQuery(r, raw, field, ctx)
}
