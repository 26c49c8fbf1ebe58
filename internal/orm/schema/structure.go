package schema

import (
	"github.com/conduit-lang/boardstore/internal/errs"
)

// StructureCollection is the name of the collection holding structure records.
// Its own documents bypass board projection.
const StructureCollection = "structure"

// System field names
const (
	FieldID       = "_id"
	FieldValid    = "valid"
	FieldCreateAt = "createAt"
	FieldCreateBy = "createBy"
	FieldUpdateAt = "updateAt"
	FieldUpdateBy = "updateBy"
)

// Structure is a parsed structure record
type Structure struct {
	Name   string
	Parent string
	Lock   bool
	Items  Definition
}

// systemFields are declared on every structure unless the record overrides them
func systemFields() Definition {
	return Definition{
		FieldID:       {Type: TypeObjectID},
		FieldValid:    {Type: TypeNumber, Default: 1, HasDefault: true},
		FieldCreateAt: {Type: TypeDate},
		FieldCreateBy: {Type: TypeString},
		FieldUpdateAt: {Type: TypeDate},
		FieldUpdateBy: {Type: TypeString},
	}
}

// ParseStructure parses a raw structure record with keys schema, items,
// parent and lock
func ParseStructure(raw map[string]interface{}) (*Structure, error) {
	name, _ := raw["schema"].(string)
	if name == "" {
		return nil, errs.Config(errs.CodeInvalidSchema, "structure record without schema name")
	}

	items, err := ParseDefinition(raw["items"])
	if err != nil {
		return nil, prefixField(name, err)
	}

	s := &Structure{
		Name:  name,
		Items: items,
	}
	s.Parent, _ = raw["parent"].(string)
	s.Lock = truthy(raw["lock"])
	return s, nil
}

// ParseStructures parses a whole structure collection
func ParseStructures(records []map[string]interface{}) ([]*Structure, error) {
	out := make([]*Structure, 0, len(records))
	for _, r := range records {
		s, err := ParseStructure(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func truthy(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "1"
	case int:
		return b != 0
	case int32:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	default:
		return false
	}
}

// withSystemFields returns items merged over the system fields
func withSystemFields(items Definition) Definition {
	out := systemFields()
	for k, f := range items {
		out[k] = f
	}
	return out
}
