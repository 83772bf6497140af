package scan

import (
	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/kv"
	"github.com/cockroachdb/errors"
)

// A Predicate reports whether key belongs to the result.
// It must not modify the store.
type Predicate func(key string) (bool, error)

// MatchAll accepts every key.
func MatchAll(string) (bool, error) {
	return true, nil
}

// KeyPredicate tests the key only.
func KeyPredicate(fn func(key string) bool) Predicate {
	return func(key string) (bool, error) {
		return fn(key), nil
	}
}

// RecordGetter loads the fields of a hash. kv.Store implements it.
type RecordGetter interface {
	HGetAll(key string) (kv.Record, error)
}

// RecordPredicate loads the hash of every key and tests it with fn.
// A hash that no longer exists yields a not found error, which makes
// the scanner skip the key. Keys holding other types never match.
func RecordPredicate(g RecordGetter, fn func(kv.Record) (bool, error)) Predicate {
	return func(key string) (bool, error) {
		rec, err := g.HGetAll(key)
		if errors.Is(err, errs.ErrWrongType) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if len(rec) == 0 {
			return false, errors.WithStack(errs.NotFoundError{Name: key})
		}

		ok, err := fn(rec)
		if err != nil {
			var m errs.MalformedFieldError
			if errors.As(err, &m) && m.Key == "" {
				m.Key = key
				return false, errors.WithStack(m)
			}
			return false, err
		}
		return ok, nil
	}
}
