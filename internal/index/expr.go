package index

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/chaisql/hashkv/internal/encoding"
	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/cockroachdb/pebble"
)

type docSet map[string]struct{}

func (s docSet) sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type evalContext struct {
	r   pebble.Reader
	def *Definition
}

// collect adds the document ids stored after prefix in [lower, upper).
func (c *evalContext) collect(set docSet, lower, upper []byte, idOffset int) error {
	it := c.r.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	for it.First(); it.Valid(); it.Next() {
		set[string(it.Key()[idOffset:])] = struct{}{}
	}
	return errs.Unavailable(it.Close())
}

func (c *evalContext) field(name string, t FieldType) error {
	f, ok := c.def.Field(name)
	if !ok {
		return errs.InvalidArgumentf("index %q: unknown field %q", c.def.Name, name)
	}
	if f.Type != t {
		return errs.InvalidArgumentf("index %q: field %q is %s, not %s", c.def.Name, name, f.Type, t)
	}
	return nil
}

// An Expr is a query evaluated against an index.
type Expr interface {
	eval(c *evalContext) (docSet, error)
	String() string
}

// All matches every document of the index.
type All struct{}

func (All) eval(c *evalContext) (docSet, error) {
	set := make(docSet)
	prefix := memberPrefix(c.def.Name)
	err := c.collect(set, prefix, encoding.Successor(prefix), len(prefix))
	return set, err
}

func (All) String() string { return "*" }

// Term matches documents whose TEXT field contains every word of Words.
// An empty Field matches any TEXT field of the index.
type Term struct {
	Field string
	Words string
}

func (t Term) eval(c *evalContext) (docSet, error) {
	fields := []string{t.Field}
	if t.Field == "" {
		fields = c.def.FieldsOfType(Text)
	} else if err := c.field(t.Field, Text); err != nil {
		return nil, err
	}

	words := tokenize(t.Words)
	if len(words) == 0 {
		return make(docSet), nil
	}

	var result docSet
	for _, w := range words {
		set := make(docSet)
		for _, f := range fields {
			prefix := tokenPrefix(c.def.Name, f, w)
			err := c.collect(set, prefix, encoding.Successor(prefix), len(prefix))
			if err != nil {
				return nil, err
			}
		}
		result = intersect(result, set)
	}
	return result, nil
}

func (t Term) String() string {
	var s string
	if strings.ContainsAny(t.Words, " \t") {
		s = "(" + t.Words + ")"
	} else {
		s = t.Words
	}
	if t.Field == "" {
		return s
	}
	return "@" + t.Field + ":" + s
}

// Tags matches documents whose TAG field holds one of Values.
type Tags struct {
	Field  string
	Values []string
}

func (t Tags) eval(c *evalContext) (docSet, error) {
	if err := c.field(t.Field, Tag); err != nil {
		return nil, err
	}

	set := make(docSet)
	for _, v := range t.Values {
		prefix := tokenPrefix(c.def.Name, t.Field, strings.ToLower(strings.TrimSpace(v)))
		err := c.collect(set, prefix, encoding.Successor(prefix), len(prefix))
		if err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (t Tags) String() string {
	return "@" + t.Field + ":{" + strings.Join(t.Values, "|") + "}"
}

// Range matches documents whose NUMERIC field is between Min and Max.
// Bounds are inclusive unless marked exclusive; use infinities for open ranges.
type Range struct {
	Field        string
	Min, Max     float64
	ExclusiveMin bool
	ExclusiveMax bool
}

func (r Range) eval(c *evalContext) (docSet, error) {
	if err := c.field(r.Field, Numeric); err != nil {
		return nil, err
	}

	set := make(docSet)
	if r.Min > r.Max {
		return set, nil
	}

	prefix := fieldPrefix(c.def.Name, r.Field)
	lower := encoding.EncodeFloat64(prefix[:len(prefix):len(prefix)], r.Min)
	if r.ExclusiveMin {
		lower = encoding.Successor(lower)
	}
	upper := encoding.EncodeFloat64(prefix[:len(prefix):len(prefix)], r.Max)
	if !r.ExclusiveMax {
		upper = encoding.Successor(upper)
	}

	return set, c.collect(set, lower, upper, len(prefix)+8)
}

func (r Range) String() string {
	bound := func(f float64, excl bool) string {
		var s string
		switch {
		case math.IsInf(f, -1):
			s = "-inf"
		case math.IsInf(f, 1):
			s = "+inf"
		default:
			s = strconv.FormatFloat(f, 'f', -1, 64)
		}
		if excl {
			return "(" + s
		}
		return s
	}
	return "@" + r.Field + ":[" + bound(r.Min, r.ExclusiveMin) + " " + bound(r.Max, r.ExclusiveMax) + "]"
}

// Intersect matches documents matched by every expression.
type Intersect []Expr

func (in Intersect) eval(c *evalContext) (docSet, error) {
	var result docSet
	for _, e := range in {
		set, err := e.eval(c)
		if err != nil {
			return nil, err
		}
		result = intersect(result, set)
		if len(result) == 0 {
			break
		}
	}
	if result == nil {
		result = make(docSet)
	}
	return result, nil
}

func (in Intersect) String() string {
	parts := make([]string, len(in))
	for i, e := range in {
		if _, ok := e.(Union); ok {
			parts[i] = "(" + e.String() + ")"
		} else {
			parts[i] = e.String()
		}
	}
	return strings.Join(parts, " ")
}

// Union matches documents matched by any expression.
type Union []Expr

func (u Union) eval(c *evalContext) (docSet, error) {
	result := make(docSet)
	for _, e := range u {
		set, err := e.eval(c)
		if err != nil {
			return nil, err
		}
		for id := range set {
			result[id] = struct{}{}
		}
	}
	return result, nil
}

func (u Union) String() string {
	parts := make([]string, len(u))
	for i, e := range u {
		parts[i] = e.String()
	}
	return strings.Join(parts, " | ")
}

// intersect returns the ids present in both sets. A nil a is the universe.
func intersect(a, b docSet) docSet {
	if a == nil {
		return b
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(docSet, len(a))
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}
