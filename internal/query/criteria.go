// Package query answers attribute queries over hashes, through a secondary
// index when it can and by scanning the keyspace otherwise.
package query

import (
	"strconv"
	"strings"

	"github.com/chaisql/hashkv/internal/kv"
)

// Criteria select hashes by the value of their fields.
// The same criteria can be evaluated against a single record by Match,
// or translated to an index query by IndexedStrategy.
type Criteria interface {
	// Match reports whether rec satisfies the criteria.
	// A field holding a value that cannot be compared, such as a non
	// numeric value in a range, returns a MalformedFieldError.
	Match(rec kv.Record) (bool, error)
	String() string
}

// Equal matches records whose field equals Value.
type Equal struct {
	Field string
	Value string
}

// Eq returns criteria matching records whose field equals value.
func Eq(field, value string) Criteria {
	return Equal{Field: field, Value: value}
}

func (e Equal) Match(rec kv.Record) (bool, error) {
	v, ok := rec[e.Field]
	return ok && v == e.Value, nil
}

func (e Equal) String() string {
	return e.Field + " = " + strconv.Quote(e.Value)
}

// OneOf matches records whose field equals one of Values.
type OneOf struct {
	Field  string
	Values []string
}

// In returns criteria matching records whose field equals one of values.
func In(field string, values ...string) Criteria {
	return OneOf{Field: field, Values: values}
}

func (o OneOf) Match(rec kv.Record) (bool, error) {
	v, ok := rec[o.Field]
	if !ok {
		return false, nil
	}
	for _, want := range o.Values {
		if v == want {
			return true, nil
		}
	}
	return false, nil
}

func (o OneOf) String() string {
	quoted := make([]string, len(o.Values))
	for i, v := range o.Values {
		quoted[i] = strconv.Quote(v)
	}
	return o.Field + " IN (" + strings.Join(quoted, ", ") + ")"
}

// Range matches records whose field is a number between Min and Max, inclusive.
type Range struct {
	Field    string
	Min, Max float64
}

// Between returns criteria matching records whose field is a number in [min, max].
func Between(field string, min, max float64) Criteria {
	return Range{Field: field, Min: min, Max: max}
}

func (r Range) Match(rec kv.Record) (bool, error) {
	if _, ok := rec[r.Field]; !ok {
		return false, nil
	}

	f, err := rec.Float(r.Field)
	if err != nil {
		return false, err
	}
	return f >= r.Min && f <= r.Max, nil
}

func (r Range) String() string {
	return r.Field + " BETWEEN " + kv.FormatFloat(r.Min) + " AND " + kv.FormatFloat(r.Max)
}

// Conjunction matches records matching every criteria.
type Conjunction []Criteria

// And returns criteria matching records matching all of cs.
func And(cs ...Criteria) Criteria {
	return Conjunction(cs)
}

func (c Conjunction) Match(rec kv.Record) (bool, error) {
	for _, cr := range c {
		ok, err := cr.Match(rec)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (c Conjunction) String() string {
	return join(c, " AND ")
}

// Disjunction matches records matching at least one criteria.
type Disjunction []Criteria

// Or returns criteria matching records matching any of cs.
func Or(cs ...Criteria) Criteria {
	return Disjunction(cs)
}

// Match returns the first error only if no other criteria matches.
func (d Disjunction) Match(rec kv.Record) (bool, error) {
	var firstErr error
	for _, cr := range d {
		ok, err := cr.Match(rec)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, firstErr
}

func (d Disjunction) String() string {
	return join(d, " OR ")
}

func join(cs []Criteria, sep string) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		switch c.(type) {
		case Conjunction, Disjunction:
			parts[i] = "(" + c.String() + ")"
		default:
			parts[i] = c.String()
		}
	}
	return strings.Join(parts, sep)
}
