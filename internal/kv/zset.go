package kv

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/chaisql/hashkv/internal/encoding"
	errs "github.com/chaisql/hashkv/internal/errors"
)

// A ZMember is a member of a sorted set and its score.
type ZMember struct {
	Member string
	Score  float64
}

// ZAdd adds member to the sorted set k with the given score,
// or updates its score if it is already a member.
// It returns 1 if the member was added, 0 if it was updated.
func (s *Store) ZAdd(k, member string, score float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added int
	err := s.update(func(b *pebble.Batch) error {
		if _, err := checkType(b, k, typeZSet); err != nil {
			return err
		}

		old, ok, err := get(b, zsetMemberKey(k, member))
		if err != nil {
			return err
		}
		if ok {
			err = b.Delete(zsetScoreKey(k, member, encoding.DecodeFloat64(old)), nil)
			if err != nil {
				return err
			}
		} else {
			added = 1
		}

		err = b.Set(keyspaceKey(k), []byte{typeZSet}, nil)
		if err != nil {
			return err
		}
		err = b.Set(zsetMemberKey(k, member), encoding.EncodeFloat64(nil, score), nil)
		if err != nil {
			return err
		}
		return b.Set(zsetScoreKey(k, member, score), nil, nil)
	})
	if err != nil {
		return 0, errors.Wrapf(err, "zadd %q", k)
	}

	return added, nil
}

// ZScore returns the score of member in the sorted set k.
func (s *Store) ZScore(k, member string) (float64, error) {
	if _, err := checkType(s.db, k, typeZSet); err != nil {
		return 0, err
	}

	v, ok, err := get(s.db, zsetMemberKey(k, member))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.WithStack(errs.NotFoundError{Name: member})
	}
	return encoding.DecodeFloat64(v), nil
}

// ZCard returns the number of members of the sorted set k.
func (s *Store) ZCard(k string) (int, error) {
	if _, err := checkType(s.db, k, typeZSet); err != nil {
		return 0, err
	}

	var n int
	prefix := zsetMemberPrefix(k)
	err := iterate(s.db, prefix, encoding.Successor(prefix), func(_, _ []byte) error {
		n++
		return nil
	})
	return n, err
}

// ZRange returns the members of the sorted set k ranked between start and stop,
// inclusive, from the lowest score to the highest.
// Negative indexes count from the end, -1 being the last member.
func (s *Store) ZRange(k string, start, stop int) ([]ZMember, error) {
	return s.zrange(k, start, stop, false)
}

// ZRevRange is like ZRange but orders members from the highest score to the lowest.
func (s *Store) ZRevRange(k string, start, stop int) ([]ZMember, error) {
	return s.zrange(k, start, stop, true)
}

func (s *Store) zrange(k string, start, stop int, reverse bool) ([]ZMember, error) {
	card, err := s.ZCard(k)
	if err != nil {
		return nil, err
	}

	if start < 0 {
		start += card
	}
	if stop < 0 {
		stop += card
	}
	if start < 0 {
		start = 0
	}
	if stop >= card {
		stop = card - 1
	}
	if start > stop {
		return []ZMember{}, nil
	}

	prefix := zsetScorePrefix(k)
	it := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: encoding.Successor(prefix),
	})

	var valid bool
	if reverse {
		valid = it.Last()
	} else {
		valid = it.First()
	}

	members := make([]ZMember, 0, stop-start+1)
	for i := 0; valid && i <= stop; i++ {
		if i >= start {
			key := it.Key()[len(prefix):]
			members = append(members, ZMember{
				Score:  encoding.DecodeFloat64(key[:8]),
				Member: string(key[8:]),
			})
		}

		if reverse {
			valid = it.Prev()
		} else {
			valid = it.Next()
		}
	}

	err = errs.Unavailable(it.Close())
	if err != nil {
		return nil, err
	}
	return members, nil
}
