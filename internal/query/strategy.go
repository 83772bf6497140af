package query

import (
	"strconv"
	"strings"

	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/index"
	"github.com/chaisql/hashkv/internal/log"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// A Strategy answers criteria without scanning the keyspace.
// ok is false if it could not answer. Otherwise ids holds the sorted,
// possibly empty, matching keys.
type Strategy interface {
	TryIndexedQuery(c Criteria) (ids []string, ok bool)
}

// IndexedStrategy answers criteria with an index of the engine.
type IndexedStrategy struct {
	engine *index.Engine
	name   string
	logger logrus.FieldLogger
}

// NewIndexedStrategy returns a strategy querying the index called name.
func NewIndexedStrategy(e *index.Engine, name string, logger logrus.FieldLogger) *IndexedStrategy {
	return &IndexedStrategy{
		engine: e,
		name:   name,
		logger: log.OrDiscard(logger),
	}
}

// TryIndexedQuery returns ok = false if the index doesn't exist, if the
// criteria reference a field that the index doesn't have or use it in a way
// its type doesn't support, or if the search fails.
func (s *IndexedStrategy) TryIndexedQuery(c Criteria) ([]string, bool) {
	logger := s.logger.WithFields(logrus.Fields{
		"index":    s.name,
		"criteria": c.String(),
	})

	def, err := s.engine.Definition(s.name)
	if err != nil {
		logger.WithError(err).Debug("index unavailable")
		return nil, false
	}

	expr, err := Translate(c, def)
	if err != nil {
		logger.WithError(err).Debug("criteria not supported by the index")
		return nil, false
	}

	res, err := s.engine.Search(s.name, expr, index.SearchOptions{Limit: -1, NoContent: true})
	if err != nil {
		logger.WithError(err).Warn("index search failed")
		return nil, false
	}

	logger.WithFields(logrus.Fields{
		"query": expr.String(),
		"total": res.Total,
	}).Debug("index search")

	return res.IDs(), true
}

// Translate converts criteria to a query over an index with the definition d.
//
// Eq on a TEXT field becomes a term, on a TAG field a single tag and on a
// NUMERIC field a range holding one value. In on a TEXT or NUMERIC field
// becomes a union. Between requires a NUMERIC field.
//
// The index is looser than Match on TEXT and TAG fields. A term matches the
// fields holding every word of the value, in any order and case, so
// Eq("city", "New York") also matches "York, New". Tags ignore case.
func Translate(c Criteria, d *index.Definition) (index.Expr, error) {
	switch t := c.(type) {
	case Equal:
		return translateValues(d, t.Field, []string{t.Value})
	case OneOf:
		return translateValues(d, t.Field, t.Values)
	case Range:
		f, err := field(d, t.Field)
		if err != nil {
			return nil, err
		}
		if f.Type != index.Numeric {
			return nil, errs.InvalidArgumentf("range on %s field %q", f.Type, f.Name)
		}
		return index.Range{Field: f.Name, Min: t.Min, Max: t.Max}, nil
	case Conjunction:
		exprs, err := translateAll(t, d)
		if err != nil {
			return nil, err
		}
		return index.Intersect(exprs), nil
	case Disjunction:
		exprs, err := translateAll(t, d)
		if err != nil {
			return nil, err
		}
		return index.Union(exprs), nil
	}

	return nil, errors.Newf("unsupported criteria %T", c)
}

func translateAll(cs []Criteria, d *index.Definition) ([]index.Expr, error) {
	if len(cs) == 0 {
		return nil, errs.InvalidArgumentf("empty criteria")
	}

	exprs := make([]index.Expr, len(cs))
	for i, c := range cs {
		e, err := Translate(c, d)
		if err != nil {
			return nil, err
		}
		exprs[i] = e
	}
	return exprs, nil
}

func field(d *index.Definition, name string) (index.Field, error) {
	f, ok := d.Field(name)
	if !ok {
		return f, errs.InvalidArgumentf("field %q is not indexed by %q", name, d.Name)
	}
	return f, nil
}

func translateValues(d *index.Definition, name string, values []string) (index.Expr, error) {
	f, err := field(d, name)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errs.InvalidArgumentf("no value for field %q", name)
	}

	switch f.Type {
	case index.Tag:
		return index.Tags{Field: name, Values: values}, nil
	case index.Text:
		var u index.Union
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				return nil, errs.InvalidArgumentf("empty value for field %q", name)
			}
			u = append(u, index.Term{Field: name, Words: v})
		}
		if len(u) == 1 {
			return u[0], nil
		}
		return u, nil
	}

	var u index.Union
	for _, v := range values {
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, errs.InvalidArgumentf("value %q of numeric field %q is not a number", v, name)
		}
		u = append(u, index.Range{Field: name, Min: n, Max: n})
	}
	if len(u) == 1 {
		return u[0], nil
	}
	return u, nil
}
