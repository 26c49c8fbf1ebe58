package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestAsMap(t *testing.T) {
	m, ok := AsMap(map[string]interface{}{"a": 1})
	require.True(t, ok)
	assert.Equal(t, bson.M{"a": 1}, m)

	m, ok = AsMap(bson.D{{Key: "a", Value: 1}, {Key: "b", Value: "x"}})
	require.True(t, ok)
	assert.Equal(t, bson.M{"a": 1, "b": "x"}, m)

	_, ok = AsMap("not a map")
	assert.False(t, ok)
}

func TestAsSlice(t *testing.T) {
	s, ok := AsSlice([]string{"a", "b"})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"a", "b"}, s)

	s, ok = AsSlice(bson.A{1, 2})
	require.True(t, ok)
	assert.Equal(t, []interface{}{1, 2}, s)

	_, ok = AsSlice(42)
	assert.False(t, ok)
}

func TestIsSubQuery(t *testing.T) {
	assert.True(t, IsSubQuery(bson.M{"$gt": 1, "$lt": 5}))
	assert.False(t, IsSubQuery(bson.M{"$gt": 1, "name": "x"}))
	assert.False(t, IsSubQuery(bson.M{}))
	assert.False(t, IsSubQuery("$gt"))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(nil))
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("   "))
	assert.False(t, IsBlank(0))
	assert.False(t, IsBlank(false))
	assert.False(t, IsBlank("x"))
}

func TestClone(t *testing.T) {
	src := bson.M{"a": bson.M{"b": []interface{}{1, bson.M{"c": 2}}}}
	cp := CloneMap(src)
	assert.Equal(t, src, cp)

	inner := cp["a"].(bson.M)
	inner["b"] = "changed"
	assert.NotEqual(t, "changed", src["a"].(bson.M)["b"])
}
