package kv

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/chaisql/hashkv/internal/encoding"
	errs "github.com/chaisql/hashkv/internal/errors"
)

// typeOf returns the type byte of key k, or 0 if it doesn't exist.
func typeOf(r pebble.Reader, k string) (byte, error) {
	v, ok, err := get(r, keyspaceKey(k))
	if err != nil || !ok || len(v) == 0 {
		return 0, err
	}
	return v[0], nil
}

func checkType(r pebble.Reader, k string, want byte) (exists bool, err error) {
	typ, err := typeOf(r, k)
	if err != nil {
		return false, err
	}
	if typ != 0 && typ != want {
		return true, errors.WithStack(errs.ErrWrongType)
	}
	return typ != 0, nil
}

func hgetall(r pebble.Reader, k string) (Record, error) {
	prefix := hashPrefix(k)
	rec := make(Record)
	err := iterate(r, prefix, encoding.Successor(prefix), func(key, value []byte) error {
		rec[string(key[len(prefix):])] = string(value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// HSet sets the given fields of the hash k, creating it if needed.
// It returns the number of fields that were added.
func (s *Store) HSet(k string, fields Record) (int, error) {
	if len(fields) == 0 {
		return 0, errs.InvalidArgumentf("hset %q: no fields", k)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var added int
	err := s.update(func(b *pebble.Batch) error {
		if _, err := checkType(b, k, typeHash); err != nil {
			return err
		}

		old, err := hgetall(b, k)
		if err != nil {
			return err
		}

		err = b.Set(keyspaceKey(k), []byte{typeHash}, nil)
		if err != nil {
			return err
		}

		next := old.Clone()
		for _, f := range fields.Fields() {
			if _, ok := old[f]; !ok {
				added++
			}
			next[f] = fields[f]

			err = b.Set(hashFieldKey(k, f), []byte(fields[f]), nil)
			if err != nil {
				return err
			}
		}

		return s.notify(b, k, old, next)
	})
	if err != nil {
		return 0, errors.Wrapf(err, "hset %q", k)
	}

	return added, nil
}

// HGet returns the value of field in the hash k.
// If the hash or the field doesn't exist, it returns a NotFoundError.
func (s *Store) HGet(k, field string) (string, error) {
	v, ok, err := get(s.db, hashFieldKey(k, field))
	if err != nil {
		return "", err
	}
	if ok {
		return string(v), nil
	}

	if _, err = checkType(s.db, k, typeHash); err != nil {
		return "", err
	}
	return "", errors.WithStack(errs.NotFoundError{Name: k + "." + field})
}

// HMGet returns the requested fields of the hash k.
// Missing fields are absent from the returned record.
func (s *Store) HMGet(k string, fields ...string) (Record, error) {
	if _, err := checkType(s.db, k, typeHash); err != nil {
		return nil, err
	}

	rec := make(Record, len(fields))
	for _, f := range fields {
		v, ok, err := get(s.db, hashFieldKey(k, f))
		if err != nil {
			return nil, err
		}
		if ok {
			rec[f] = string(v)
		}
	}

	return rec, nil
}

// HGetAll returns every field of the hash k.
// If the hash doesn't exist, the returned record is empty.
func (s *Store) HGetAll(k string) (Record, error) {
	if _, err := checkType(s.db, k, typeHash); err != nil {
		return nil, err
	}

	return hgetall(s.db, k)
}

// Exists returns how many of the given keys exist.
func (s *Store) Exists(keys ...string) (int, error) {
	var n int
	for _, k := range keys {
		typ, err := typeOf(s.db, k)
		if err != nil {
			return 0, err
		}
		if typ != 0 {
			n++
		}
	}
	return n, nil
}

// Type returns "hash", "zset" or "none".
func (s *Store) Type(k string) (string, error) {
	typ, err := typeOf(s.db, k)
	if err != nil {
		return "", err
	}

	switch typ {
	case typeHash:
		return "hash", nil
	case typeZSet:
		return "zset", nil
	}
	return "none", nil
}

// Del removes the given keys and returns how many existed.
func (s *Store) Del(keys ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.update(func(b *pebble.Batch) error {
		for _, k := range keys {
			typ, err := typeOf(b, k)
			if err != nil {
				return err
			}

			switch typ {
			case 0:
				continue
			case typeHash:
				old, err := hgetall(b, k)
				if err != nil {
					return err
				}
				prefix := hashPrefix(k)
				err = b.DeleteRange(prefix, encoding.Successor(prefix), nil)
				if err != nil {
					return err
				}
				err = s.notify(b, k, old, nil)
				if err != nil {
					return err
				}
			case typeZSet:
				prefix := zsetPrefix(k)
				err = b.DeleteRange(prefix, encoding.Successor(prefix), nil)
				if err != nil {
					return err
				}
			}

			err = b.Delete(keyspaceKey(k), nil)
			if err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "del")
	}

	return n, nil
}

// ForEachHash calls fn on every hash whose key starts with prefix, in key order.
// r is usually the batch passed to a Hook, so the hashes are read
// consistently with the write being performed.
func ForEachHash(r pebble.Reader, prefix string, fn func(key string, rec Record) error) error {
	lower := keyspaceKey(prefix)
	return iterate(r, lower, encoding.Successor(lower), func(k, v []byte) error {
		if len(v) == 0 || v[0] != typeHash {
			return nil
		}

		key := string(k[1:])
		rec, err := hgetall(r, key)
		if err != nil {
			return err
		}
		return fn(key, rec)
	})
}
