package kv

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	errs "github.com/chaisql/hashkv/internal/errors"
)

// A Record maps the fields of a hash to their values.
// Like Redis, every value is stored as a string.
type Record map[string]string

// Float parses the value of field as a float64.
// It returns a NotFoundError if the field is missing and a MalformedFieldError
// if its value is not a number.
func (r Record) Float(field string) (float64, error) {
	v, ok := r[field]
	if !ok {
		return 0, errors.WithStack(errs.NotFoundError{Name: field})
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, errors.WithStack(errs.MalformedFieldError{Field: field, Value: v})
	}
	return f, nil
}

// Fields returns the sorted field names.
func (r Record) Fields() []string {
	fields := make([]string, 0, len(r))
	for f := range r {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Clone returns a copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// FormatFloat formats f the way values are stored,
// using the shortest representation that round trips.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
