package coerce

import (
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/conduit-lang/boardstore/internal/errs"
	"github.com/conduit-lang/boardstore/internal/orm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func scalar(t schema.Type) *schema.Field {
	return &schema.Field{Type: t}
}

func TestNewRegistry_Exhaustive(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	assert.NotNil(t, r)

	partial := map[schema.Type]Converter{
		schema.TypeString: builtins[schema.TypeString],
	}
	_, err = newRegistry(partial)
	require.Error(t, err)
	assert.True(t, errs.IsConfig(err))
}

func TestString(t *testing.T) {
	r := MustRegistry()
	ctx := DefaultContext()
	f := scalar(schema.TypeString)

	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"string", "abc", "abc"},
		{"int", 123, "123"},
		{"float", 1.5, "1.5"},
		{"integral float", float64(123), "123"},
		{"bool", true, "true"},
		{"nil", nil, nil},
		{"map", bson.M{"a": 1}, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ForWrite(tt.in, f, ctx))
		})
	}

	re := primitive.Regex{Pattern: "^ab", Options: "i"}
	assert.Equal(t, re, r.ForQuery(re, f, ctx))
	assert.Equal(t, primitive.Regex{Pattern: "^x"}, r.ForQuery(regexp.MustCompile("^x"), f, ctx))
	assert.Equal(t, "^ab", r.ForWrite(re, f, ctx))
}

func TestNumber(t *testing.T) {
	r := MustRegistry()
	ctx := DefaultContext()
	f := scalar(schema.TypeNumber)

	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"int passthrough", 41, 41},
		{"float passthrough", 4.5, 4.5},
		{"integral string", "41", int64(41)},
		{"float string", "4.25", 4.25},
		{"padded string", " 7 ", int64(7)},
		{"garbage", "abc", nil},
		{"empty", "", nil},
		{"NaN", math.NaN(), nil},
		{"NaN string", "NaN", nil},
		{"Inf", math.Inf(1), nil},
		{"bool", true, nil},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ForWrite(tt.in, f, ctx))
			assert.Equal(t, tt.want, r.ForQuery(tt.in, f, ctx))
		})
	}
}

func TestBoolean(t *testing.T) {
	r := MustRegistry()
	ctx := DefaultContext()
	f := scalar(schema.TypeBoolean)

	tests := []struct {
		in   interface{}
		want interface{}
	}{
		{"false", false},
		{"0", false},
		{0, false},
		{0.0, false},
		{"", false},
		{false, false},
		{"true", true},
		{"yes", true},
		{1, true},
		{true, true},
		{bson.M{}, true},
		{nil, nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.ForWrite(tt.in, f, ctx), "input %#v", tt.in)
	}
}

func TestDate(t *testing.T) {
	r := MustRegistry()
	f := scalar(schema.TypeDate)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	utc := r.ForWrite("2024/03/05", f, DefaultContext())
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), utc)

	local := r.ForWrite("2024-03-05 10:30:00", f, Context{Location: tokyo})
	require.IsType(t, time.Time{}, local)
	assert.True(t, local.(time.Time).Equal(time.Date(2024, 3, 5, 1, 30, 0, 0, time.UTC)))

	withOffset := r.ForWrite("2024-03-05T10:30:00Z", f, Context{Location: tokyo})
	assert.True(t, withOffset.(time.Time).Equal(time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)))

	native := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, native, r.ForWrite(native, f, DefaultContext()))
	assert.Equal(t, native, r.ForQuery(primitive.NewDateTimeFromTime(native), f, DefaultContext()).(time.Time).UTC())

	assert.Nil(t, r.ForWrite("not a date", f, DefaultContext()))
	assert.Nil(t, r.ForWrite(12345, f, DefaultContext()))
	assert.Nil(t, r.ForWrite(nil, f, DefaultContext()))
}

func TestObjectID(t *testing.T) {
	r := MustRegistry()
	ctx := DefaultContext()
	f := scalar(schema.TypeObjectID)
	id := primitive.NewObjectID()

	assert.Equal(t, id, r.ForWrite(id.Hex(), f, ctx))
	assert.Equal(t, id, r.ForWrite(id, f, ctx))
	assert.Nil(t, r.ForWrite("short", f, ctx))
	assert.Nil(t, r.ForWrite("zzzzzzzzzzzzzzzzzzzzzzzz", f, ctx))
	assert.Nil(t, r.ForWrite(42, f, ctx))
	assert.Equal(t, []interface{}{id, nil}, r.ForQuery([]interface{}{id.Hex(), "bad"}, f, ctx))
}

func TestRegexp(t *testing.T) {
	r := MustRegistry()
	ctx := DefaultContext()
	f := scalar(schema.TypeRegexp)

	assert.Equal(t, primitive.Regex{Pattern: "^a.*z$", Options: "i"}, r.ForWrite("/^a.*z$/i", f, ctx))
	assert.Equal(t, primitive.Regex{Pattern: "abc"}, r.ForQuery("abc", f, ctx))
	assert.Nil(t, r.ForWrite(12, f, ctx))
}

func TestObject(t *testing.T) {
	r := MustRegistry()
	ctx := DefaultContext()

	free := scalar(schema.TypeObject)
	assert.Equal(t, bson.M{}, r.ForWrite(nil, free, ctx))
	assert.Equal(t, bson.M{}, r.ForWrite("", free, ctx))
	assert.Equal(t, bson.M{"a": float64(1)}, r.ForWrite(`{"a":1}`, free, ctx))
	assert.Nil(t, r.ForWrite("{broken", free, ctx))
	assert.Nil(t, r.ForWrite(42, free, ctx))

	declared := &schema.Field{
		Type: schema.TypeObject,
		Fields: schema.Definition{
			"age":  scalar(schema.TypeNumber),
			"tags": {Type: schema.TypeArray, Elem: scalar(schema.TypeString)},
		},
	}
	got := r.ForWrite(bson.M{"age": "3", "tags": "x", "extra": "kept"}, declared, ctx)
	// embedded objects keep undeclared sub-keys, unlike top-level mapping
	assert.Equal(t, bson.M{"age": int64(3), "tags": []interface{}{"x"}, "extra": "kept"}, got)
}

func TestArray(t *testing.T) {
	r := MustRegistry()
	ctx := DefaultContext()
	numbers := &schema.Field{Type: schema.TypeArray, Elem: scalar(schema.TypeNumber)}
	untyped := scalar(schema.TypeArray)

	assert.Equal(t, []interface{}{}, r.ForWrite(nil, numbers, ctx))
	assert.Equal(t, []interface{}{}, r.ForWrite("", numbers, ctx))
	assert.Equal(t, []interface{}{}, r.ForWrite("[]", numbers, ctx))
	assert.Equal(t, []interface{}{int64(5)}, r.ForWrite("5", numbers, ctx))
	assert.Equal(t, []interface{}{float64(1), float64(2)}, r.ForWrite("[1,2]", numbers, ctx))
	assert.Equal(t, []interface{}{int64(1), nil}, r.ForWrite([]interface{}{"1", "x"}, numbers, ctx))
	assert.Equal(t, []interface{}{"a", 1}, r.ForWrite([]interface{}{"a", 1}, untyped, ctx))

	// a scalar operand in a query matches array members
	assert.Equal(t, int64(5), r.ForQuery("5", numbers, ctx))
	assert.Equal(t, []interface{}{int64(1), int64(2)}, r.ForQuery([]string{"1", "2"}, numbers, ctx))
	assert.Nil(t, r.ForQuery(nil, numbers, ctx))
}

func TestNilField(t *testing.T) {
	r := MustRegistry()
	assert.Equal(t, "raw", r.ForWrite("raw", nil, DefaultContext()))
}
