package query

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Condition is one field operator value triple
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// ToQuery compiles the condition
func (c *Condition) ToQuery() (bson.M, error) {
	return Compile(c.Operator, c.Field, c.Value)
}

// PredicateGroup is a set of conditions combined with AND
type PredicateGroup struct {
	Name       string
	Conditions []*Condition
}

// NewPredicateGroup creates a new predicate group
func NewPredicateGroup(name string) *PredicateGroup {
	return &PredicateGroup{
		Name:       name,
		Conditions: make([]*Condition, 0),
	}
}

// AddCondition adds a condition to the group
func (pg *PredicateGroup) AddCondition(cond *Condition) {
	pg.Conditions = append(pg.Conditions, cond)
}

// ToQuery compiles every condition into one document. Conditions on the same
// field are merged, so a lower and an upper bound can share a key.
func (pg *PredicateGroup) ToQuery() (bson.M, error) {
	out := bson.M{}
	for _, cond := range pg.Conditions {
		fragment, err := cond.ToQuery()
		if err != nil {
			return nil, err
		}
		Merge(out, fragment)
	}
	return out, nil
}

// PredicateBuilder collects named AND groups that are combined with OR
type PredicateBuilder struct {
	groups []*PredicateGroup
	byName map[string]*PredicateGroup
}

// NewPredicateBuilder creates a new predicate builder
func NewPredicateBuilder() *PredicateBuilder {
	return &PredicateBuilder{
		groups: make([]*PredicateGroup, 0),
		byName: make(map[string]*PredicateGroup),
	}
}

// And adds a condition to the named group, creating it on first use
func (pb *PredicateBuilder) And(group, field string, op Operator, value interface{}) *PredicateBuilder {
	g, ok := pb.byName[group]
	if !ok {
		g = NewPredicateGroup(group)
		pb.byName[group] = g
		pb.groups = append(pb.groups, g)
	}
	g.AddCondition(&Condition{Field: field, Operator: op, Value: value})
	return pb
}

// Branches compiles every group in first-use order and drops empty ones
func (pb *PredicateBuilder) Branches() ([]bson.M, error) {
	out := make([]bson.M, 0, len(pb.groups))
	for _, g := range pb.groups {
		q, err := g.ToQuery()
		if err != nil {
			return nil, err
		}
		if len(q) == 0 {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// ToQuery combines the groups: a single group is returned as is, several are
// wrapped in $or and none yields an empty document
func (pb *PredicateBuilder) ToQuery() (bson.M, error) {
	branches, err := pb.Branches()
	if err != nil {
		return nil, err
	}
	return Combine(branches), nil
}

// Combine wraps branches in $or when there is more than one
func Combine(branches []bson.M) bson.M {
	switch len(branches) {
	case 0:
		return bson.M{}
	case 1:
		return branches[0]
	default:
		or := make([]interface{}, len(branches))
		for i, b := range branches {
			or[i] = b
		}
		return bson.M{OpOr.String(): or}
	}
}
