package schema

import (
	"testing"

	"github.com/conduit-lang/boardstore/internal/errs"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		name     string
		typeVal  Type
		expected string
	}{
		{"TypeString", TypeString, "string"},
		{"TypeNumber", TypeNumber, "number"},
		{"TypeBoolean", TypeBoolean, "boolean"},
		{"TypeDate", TypeDate, "date"},
		{"TypeObjectID", TypeObjectID, "objectid"},
		{"TypeRegexp", TypeRegexp, "regexp"},
		{"TypeObject", TypeObject, "object"},
		{"TypeArray", TypeArray, "array"},
		{"zero", Type(0), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.typeVal.String()
			if result != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  Type
		expectErr bool
	}{
		{"lower", "string", TypeString, false},
		{"upper", "NUMBER", TypeNumber, false},
		{"mixed", "ObjectId", TypeObjectID, false},
		{"padded", " date ", TypeDate, false},
		{"regexp", "RegExp", TypeRegexp, false},
		{"unknown", "decimal", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseType(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				if !errs.IsConfig(err) {
					t.Errorf("expected config error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestEveryTypeRoundTrips(t *testing.T) {
	for _, typ := range Types {
		parsed, err := ParseType(typ.String())
		if err != nil {
			t.Fatalf("type %v does not parse: %v", typ, err)
		}
		if parsed != typ {
			t.Errorf("expected %v, got %v", typ, parsed)
		}
	}
}

func TestIsComposite(t *testing.T) {
	if !TypeObject.IsComposite() || !TypeArray.IsComposite() {
		t.Error("object and array should be composite")
	}
	if TypeString.IsComposite() || TypeDate.IsComposite() {
		t.Error("scalars should not be composite")
	}
}
