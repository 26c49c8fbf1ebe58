package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestPredicateGroup_MergesSameField(t *testing.T) {
	g := NewPredicateGroup("a")
	g.AddCondition(&Condition{Field: "age", Operator: OpGt, Value: 1})
	g.AddCondition(&Condition{Field: "age", Operator: OpLt, Value: 10})
	g.AddCondition(&Condition{Field: "name", Operator: OpEq, Value: "x"})

	q, err := g.ToQuery()
	require.NoError(t, err)
	assert.Equal(t, bson.M{
		"age":  bson.M{"$gt": 1, "$lt": 10},
		"name": bson.M{"$eq": "x"},
	}, q)
}

func TestPredicateBuilder(t *testing.T) {
	t.Run("single group has no $or", func(t *testing.T) {
		q, err := NewPredicateBuilder().
			And("a", "k1", OpEq, 1).
			And("a", "k2", OpEq, 2).
			ToQuery()
		require.NoError(t, err)
		assert.Equal(t, bson.M{"k1": bson.M{"$eq": 1}, "k2": bson.M{"$eq": 2}}, q)
	})

	t.Run("groups are or-combined in first-use order", func(t *testing.T) {
		q, err := NewPredicateBuilder().
			And("a", "k1", OpEq, 1).
			And("b", "k3", OpEq, 3).
			And("a", "k2", OpEq, 2).
			ToQuery()
		require.NoError(t, err)
		assert.Equal(t, bson.M{"$or": []interface{}{
			bson.M{"k1": bson.M{"$eq": 1}, "k2": bson.M{"$eq": 2}},
			bson.M{"k3": bson.M{"$eq": 3}},
		}}, q)
	})

	t.Run("empty", func(t *testing.T) {
		q, err := NewPredicateBuilder().ToQuery()
		require.NoError(t, err)
		assert.Equal(t, bson.M{}, q)
	})
}

func TestCombine(t *testing.T) {
	assert.Equal(t, bson.M{}, Combine(nil))
	assert.Equal(t, bson.M{"a": 1}, Combine([]bson.M{{"a": 1}}))
	assert.Equal(t, bson.M{"$or": []interface{}{bson.M{"a": 1}, bson.M{"b": 1}}}, Combine([]bson.M{{"a": 1}, {"b": 1}}))
}
