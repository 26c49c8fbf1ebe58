package board

import (
	"github.com/conduit-lang/boardstore/internal/orm/doc"
	"github.com/conduit-lang/boardstore/internal/orm/query"
	"github.com/conduit-lang/boardstore/internal/orm/schema"
	"go.mongodb.org/mongo-driver/bson"
)

const validKey = schema.FieldValid

// Condition compiles the board filters against the request into a query
// document.
//
// A free condition is returned as given and an id yields a single record
// lookup. Otherwise filters sharing a group are combined with AND, distinct
// groups with OR, and every branch is restricted to valid records unless it
// names valid itself.
func (b *Board) Condition(p Params, s Session) (bson.M, error) {
	if p.Free != nil {
		return doc.CloneMap(p.Free), nil
	}
	if p.ID != nil {
		return bson.M{schema.FieldID: p.ID}, nil
	}

	builder := query.NewPredicateBuilder()
	consumesValid := false
	for _, f := range b.Filters {
		if f.param() == validKey {
			consumesValid = true
		}
		val, ok := b.filterValue(f, p, s)
		if !ok {
			continue
		}
		builder.And(f.Group, f.Key, f.Operator, val)
	}

	branches, err := builder.Branches()
	if err != nil {
		return nil, err
	}

	var valid interface{} = 1
	if v, ok := p.Condition[validKey]; ok && !consumesValid {
		valid = v
	}
	if len(branches) == 0 {
		return bson.M{validKey: valid}, nil
	}
	for _, branch := range branches {
		if _, ok := branch[validKey]; !ok {
			branch[validKey] = valid
		}
	}
	return query.Combine(branches), nil
}

// filterValue resolves the request value of a filter, falling back to its
// default. Missing and empty string values are skipped, explicit nil, false
// and zero are kept.
func (b *Board) filterValue(f Filter, p Params, s Session) (interface{}, bool) {
	val, ok := p.Condition[f.param()]
	if !ok || val == "" {
		if f.Default == nil {
			return nil, false
		}
		val, ok = s.resolveToken(f.Default), true
	}
	if val == "" {
		return nil, false
	}
	return val, ok
}
