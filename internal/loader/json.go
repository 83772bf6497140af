package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/buger/jsonparser"
	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/kv"
	"github.com/cockroachdb/errors"
)

// KeyField is the JSON field holding the key of a user.
const KeyField = "id"

// LoadUsersJSON reads users from r and stores them as hashes.
// The reader can be either a stream of JSON objects or an array of objects.
// Every object must have a KeyField string; the other fields become the
// fields of the hash. Numbers and booleans are stored as written, nulls are ignored.
// It returns the number of users stored.
func (l *Loader) LoadUsersJSON(ctx context.Context, r io.Reader) (int, error) {
	rd := bufio.NewReader(r)

	// read first non-white space byte to determine
	// whether we are reading from a json stream or
	// an array of json objects.
	c, err := readByteIgnoreWhitespace(rd)
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if err := rd.UnreadByte(); err != nil {
		return 0, errors.WithStack(err)
	}

	dec := json.NewDecoder(rd)

	var n int
	insert := func() error {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "object %d", n+1)
		}

		key, rec, err := parseUser(raw)
		if err != nil {
			return errors.Wrapf(err, "object %d", n+1)
		}

		_, err = l.store.HSet(key, rec)
		if err != nil {
			return err
		}
		n++
		return nil
	}

	switch c {
	case '{': // json stream
		for dec.More() {
			if err := insert(); err != nil {
				return n, err
			}
		}
	case '[': // array of json objects
		if _, err := dec.Token(); err != nil {
			return 0, errors.WithStack(err)
		}

		for dec.More() {
			if err := insert(); err != nil {
				return n, err
			}
		}

		t, err := dec.Token()
		if err != nil {
			return n, errors.WithStack(err)
		}
		if d, ok := t.(json.Delim); !ok || d != ']' {
			return n, errors.Newf("found %v, but expected ']'", t)
		}
	default:
		return 0, errs.InvalidArgumentf("found %q, but expected '{' or '['", c)
	}

	l.logger.WithField("users", n).Debug("users loaded")
	return n, nil
}

func parseUser(data []byte) (string, kv.Record, error) {
	var key string
	rec := make(kv.Record)

	err := jsonparser.ObjectEach(data, func(k, value []byte, dataType jsonparser.ValueType, offset int) error {
		var v string
		switch dataType {
		case jsonparser.Null:
			return nil
		case jsonparser.String:
			s, err := jsonparser.ParseString(value)
			if err != nil {
				return err
			}
			v = s
		case jsonparser.Number, jsonparser.Boolean:
			v = string(value)
		default:
			return errs.InvalidArgumentf("field %q: nested values are not supported", k)
		}

		if string(k) == KeyField {
			key = v
			return nil
		}
		rec[string(k)] = v
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	if key == "" {
		return "", nil, errs.InvalidArgumentf("missing %q field", KeyField)
	}
	if len(rec) == 0 {
		return "", nil, errs.InvalidArgumentf("user %q has no fields", key)
	}
	return key, rec, nil
}

func readByteIgnoreWhitespace(r *bufio.Reader) (byte, error) {
	var c byte
	var err error

	for {
		c, err = r.ReadByte()
		if err != nil {
			return c, err
		}

		if c != '\n' && c != '\r' && c != ' ' && c != '\t' {
			break
		}
	}

	return c, nil
}
