package models

import "time"

// Operator enumerates the comparison operators a store must support.
type Operator string

const (
	OpEqual              Operator = "=="
	OpGreaterThanOrEqual Operator = ">="
	OpLessThan           Operator = "<"
)

// Direction enumerates sort directions.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Predicate is one conjunctive filter condition. Value is a string or a time.Time.
type Predicate struct {
	Field string
	Op    Operator
	Value any
}

// Ordering describes the sort applied to query results.
type Ordering struct {
	Field     string
	Direction Direction
}

// Query is a complete store query: all predicates are ANDed.
type Query struct {
	Predicates []Predicate
	OrderBy    Ordering
}

// Matches evaluates the predicates against rec. Stores without native
// query support use it; the service layer never post-filters.
func (q Query) Matches(rec Record) bool {
	for _, p := range q.Predicates {
		if !p.matches(rec) {
			return false
		}
	}
	return true
}

func (p Predicate) matches(rec Record) bool {
	switch v := p.Value.(type) {
	case string:
		got, err := rec.Fields.Get(p.Field)
		if err != nil {
			return false
		}
		switch p.Op {
		case OpEqual:
			return got == v
		case OpGreaterThanOrEqual:
			return got >= v
		case OpLessThan:
			return got < v
		}
	case time.Time:
		var got time.Time
		switch p.Field {
		case FieldCreatedAt:
			got = rec.CreatedAt
		case FieldUpdatedAt:
			if rec.UpdatedAt == nil {
				return false
			}
			got = *rec.UpdatedAt
		default:
			return false
		}
		switch p.Op {
		case OpEqual:
			return got.Equal(v)
		case OpGreaterThanOrEqual:
			return !got.Before(v)
		case OpLessThan:
			return got.Before(v)
		}
	}
	return false
}
