// Package schema provides the parsed, validated representation of the
// structure records that describe every collection. Field descriptors are
// read from the store as loose documents and turned into a typed tree once
// per metadata reload.
package schema

import (
	"strings"

	"github.com/conduit-lang/boardstore/internal/errs"
)

// Type represents the built-in field types
type Type int

const (
	TypeString Type = iota + 1
	TypeNumber
	TypeBoolean
	TypeDate
	TypeObjectID
	TypeRegexp
	TypeObject
	TypeArray
)

// Types lists every recognized type in declaration order
var Types = []Type{
	TypeString,
	TypeNumber,
	TypeBoolean,
	TypeDate,
	TypeObjectID,
	TypeRegexp,
	TypeObject,
	TypeArray,
}

// String returns the string representation of the type
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeDate:
		return "date"
	case TypeObjectID:
		return "objectid"
	case TypeRegexp:
		return "regexp"
	case TypeObject:
		return "object"
	case TypeArray:
		return "array"
	default:
		return "unknown"
	}
}

// IsComposite returns true for object and array
func (t Type) IsComposite() bool {
	return t == TypeObject || t == TypeArray
}

// ParseType converts a case-insensitive type name to a Type
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string":
		return TypeString, nil
	case "number":
		return TypeNumber, nil
	case "boolean":
		return TypeBoolean, nil
	case "date":
		return TypeDate, nil
	case "objectid":
		return TypeObjectID, nil
	case "regexp":
		return TypeRegexp, nil
	case "object":
		return TypeObject, nil
	case "array":
		return TypeArray, nil
	default:
		return 0, errs.Config(errs.CodeUnknownType, "unknown type: %q", s)
	}
}
