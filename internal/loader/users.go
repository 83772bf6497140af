package loader

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/kv"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

const maxLineSize = 1 << 20

// coordinates are checked to be numbers when loaded.
var coordinates = map[string]struct{}{
	"longitude": {},
	"latitude":  {},
}

// LoadUsers reads one user per line and stores it as a hash.
// A line holds the key of the user followed by field and value pairs,
// each token bare or surrounded by double quotes:
//
//	"user:1" "first_name" "Ada" "last_name" "Lovelace" "latitude" "51.5"
//
// Empty lines are ignored. Coordinates that are not numbers are stored
// as they are and a warning is logged.
// It returns the number of users stored.
func (l *Loader) LoadUsers(ctx context.Context, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var n, line int
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return n, errors.WithStack(err)
		}

		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		tokens, err := splitTokens(text)
		if err != nil {
			return n, errors.Wrapf(err, "line %d", line)
		}

		key := tokens[0]
		logger := l.logger.WithFields(logrus.Fields{
			"line": line,
			"key":  key,
		})

		if len(tokens)%2 == 0 {
			logger.Warnf("ignoring field %q without value", tokens[len(tokens)-1])
		}

		rec := make(kv.Record, len(tokens)/2)
		for i := 1; i+1 < len(tokens); i += 2 {
			field, value := tokens[i], tokens[i+1]
			if _, ok := coordinates[field]; ok {
				if _, err := strconv.ParseFloat(value, 64); err != nil {
					logger.Warnf("%s %q is not a number, storing it as is", field, value)
				}
			}
			rec[field] = value
		}

		if len(rec) == 0 {
			logger.Warn("skipping user without fields")
			continue
		}

		_, err = l.store.HSet(key, rec)
		if err != nil {
			return n, errors.Wrapf(err, "line %d", line)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, errors.Wrap(err, "cannot read users")
	}

	l.logger.WithField("users", n).Debug("users loaded")
	return n, nil
}

// splitTokens splits a line on spaces. Double quotes group
// words containing spaces and are removed.
func splitTokens(s string) ([]string, error) {
	var tokens []string

	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == ' ' || c == '\t':
			i++
		case c == '"':
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				return nil, errs.InvalidArgumentf("unterminated quote at char %d", i+1)
			}
			tokens = append(tokens, s[i+1:i+1+end])
			i += end + 2
		default:
			end := strings.IndexAny(s[i:], " \t")
			if end < 0 {
				end = len(s) - i
			}
			tokens = append(tokens, s[i:i+end])
			i += end
		}
	}

	return tokens, nil
}
