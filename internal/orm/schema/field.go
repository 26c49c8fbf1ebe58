package schema

import (
	"sort"
	"strconv"
	"strings"

	"github.com/conduit-lang/boardstore/internal/errs"
	"github.com/conduit-lang/boardstore/internal/orm/doc"
)

// Field is one node of the schema tree.
//
// A scalar field only has Type. An array field has Elem describing its
// elements, which is nil for untyped arrays. An object field may have Fields
// describing its declared sub-keys.
type Field struct {
	Type       Type
	Elem       *Field
	Fields     Definition
	Default    interface{}
	HasDefault bool
}

// Definition maps field names to their descriptors
type Definition map[string]*Field

// Structured reports whether coercion should recurse into the field rather
// than hand the value to a leaf converter
func (f *Field) Structured() bool {
	switch f.Type {
	case TypeObject:
		return len(f.Fields) > 0
	case TypeArray:
		return f.Elem != nil && f.Elem.Type == TypeObject && len(f.Elem.Fields) > 0
	default:
		return false
	}
}

// Keys returns the declared field names in sorted order
func (d Definition) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve finds the descriptor for a possibly dotted key such as "a.b.c".
// Purely numeric segments are array indices: a trailing index resolves to the
// element descriptor, an inner one is skipped unless the elements are arrays
// themselves. ok is false if any hop is undeclared. A trailing index into an
// untyped array resolves to a nil field with ok true.
func (d Definition) Resolve(key string) (field *Field, ok bool) {
	if f, ok := d[key]; ok {
		return f, true
	}
	if !strings.Contains(key, ".") {
		return nil, false
	}

	parts := strings.Split(key, ".")
	if field, ok = d[parts[0]]; !ok {
		return nil, false
	}
	last := len(parts) - 1
	for i, part := range parts[1:] {
		if _, err := strconv.Atoi(part); err == nil {
			if field == nil || field.Type != TypeArray {
				return nil, false
			}
			if i+1 == last || (field.Elem != nil && field.Elem.Type == TypeArray) {
				field = field.Elem
			}
			continue
		}
		if field == nil {
			return nil, false
		}
		fields := field.children()
		if fields == nil {
			return nil, false
		}
		next, ok := fields[part]
		if !ok {
			return nil, false
		}
		field = next
	}
	return field, true
}

// children returns the sub-fields reachable from f for path resolution
func (f *Field) children() Definition {
	switch f.Type {
	case TypeObject:
		return f.Fields
	case TypeArray:
		if f.Elem != nil && f.Elem.Type == TypeObject {
			return f.Elem.Fields
		}
	}
	return nil
}

// ParseDefinition builds a Definition from a loose items document.
// Entries without a type are undeclared and dropped. An unknown type name is a
// configuration error.
func ParseDefinition(raw interface{}) (Definition, error) {
	items, ok := doc.AsMap(raw)
	if !ok {
		return Definition{}, nil
	}

	def := make(Definition, len(items))
	for name, v := range items {
		desc, ok := doc.AsMap(v)
		if !ok {
			continue
		}
		field, err := ParseField(desc)
		if err != nil {
			return nil, prefixField(name, err)
		}
		if field == nil {
			continue
		}
		def[name] = field
	}
	return def, nil
}

// ParseField builds a Field from one descriptor. Returns nil, nil for a
// descriptor without type.
func ParseField(desc map[string]interface{}) (*Field, error) {
	typeName, ok := desc["type"].(string)
	if !ok || typeName == "" {
		return nil, nil
	}
	t, err := ParseType(typeName)
	if err != nil {
		return nil, err
	}

	field := &Field{Type: t}
	if def, ok := desc["default"]; ok {
		field.Default = def
		field.HasDefault = true
	}

	contents, hasContents := desc["contents"]
	if !hasContents || contents == nil {
		return field, nil
	}

	switch t {
	case TypeArray:
		elem, err := parseContents(contents)
		if err != nil {
			return nil, err
		}
		field.Elem = elem
	case TypeObject:
		fields, err := ParseDefinition(contents)
		if err != nil {
			return nil, err
		}
		field.Fields = fields
	}
	return field, nil
}

// parseContents interprets array contents, which may be a type name, a single
// element descriptor or a definition of object elements
func parseContents(contents interface{}) (*Field, error) {
	if name, ok := contents.(string); ok {
		t, err := ParseType(name)
		if err != nil {
			return nil, err
		}
		return &Field{Type: t}, nil
	}

	m, ok := doc.AsMap(contents)
	if !ok {
		return nil, nil
	}
	if _, isDescriptor := m["type"].(string); isDescriptor {
		return ParseField(m)
	}

	fields, err := ParseDefinition(m)
	if err != nil {
		return nil, err
	}
	return &Field{Type: TypeObject, Fields: fields}, nil
}

func prefixField(name string, err error) error {
	if e, ok := err.(*errs.Error); ok {
		return &errs.Error{Kind: e.Kind, Code: e.Code, Message: name + ": " + e.Message, Err: e.Err}
	}
	return err
}
