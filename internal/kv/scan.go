package kv

import (
	"bytes"
	"encoding/hex"

	"github.com/cockroachdb/pebble"
	"github.com/chaisql/hashkv/internal/encoding"
	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/glob"
)

// StartCursor starts a new iteration of the keyspace.
// Scan returns it once the iteration is complete.
const StartCursor = "0"

// Scan returns a page of the keyspace.
// It visits at most count keys starting at cursor, in byte order, and returns
// those matching the glob pattern match along with the cursor of the next page.
// The returned cursor equals StartCursor when there is nothing left to visit.
//
// Pages are read without a snapshot: keys added or removed between two calls
// may or may not be returned, and a key may be returned more than once.
// Cursors other than StartCursor are hex encoded positions in the keyspace;
// any hex string is accepted.
func (s *Store) Scan(cursor string, match string, count int) (string, []string, error) {
	if count <= 0 {
		return "", nil, errs.InvalidArgumentf("scan: count must be positive, got %d", count)
	}

	var pos []byte
	if cursor != StartCursor {
		var err error
		pos, err = hex.DecodeString(cursor)
		if err != nil {
			return "", nil, errs.InvalidArgumentf("scan: invalid cursor %q", cursor)
		}
	}

	// only keys sharing the literal prefix of the pattern can match
	lower := keyspaceKey(glob.Prefix(match))
	upper := encoding.Successor(lower)

	start := keyspaceKey(string(pos))
	if bytes.Compare(start, lower) < 0 {
		start = lower
	}

	it := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})

	var keys []string
	valid := it.SeekGE(start)
	for visited := 0; valid && visited < count; visited++ {
		k := string(it.Key()[1:])
		if glob.Match(match, k) {
			keys = append(keys, k)
		}
		valid = it.Next()
	}

	next := StartCursor
	if valid {
		next = hex.EncodeToString(it.Key()[1:])
	}

	err := errs.Unavailable(it.Close())
	if err != nil {
		return "", nil, err
	}

	return next, keys, nil
}
