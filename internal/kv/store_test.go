package kv_test

import (
	"fmt"
	"sort"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/kv"
	"github.com/chaisql/hashkv/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	s := testutil.NewStore(t)

	t.Run("HSet counts added fields", func(t *testing.T) {
		n, err := s.HSet("user:1", kv.Record{"first_name": "Ada", "last_name": "Lovelace"})
		require.NoError(t, err)
		require.Equal(t, 2, n)

		n, err = s.HSet("user:1", kv.Record{"last_name": "Byron", "email": "ada@example.com"})
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("HGetAll", func(t *testing.T) {
		rec, err := s.HGetAll("user:1")
		require.NoError(t, err)
		require.Equal(t, kv.Record{"first_name": "Ada", "last_name": "Byron", "email": "ada@example.com"}, rec)

		rec, err = s.HGetAll("user:404")
		require.NoError(t, err)
		require.Empty(t, rec)
	})

	t.Run("HGet", func(t *testing.T) {
		v, err := s.HGet("user:1", "email")
		require.NoError(t, err)
		require.Equal(t, "ada@example.com", v)

		_, err = s.HGet("user:1", "phone")
		require.True(t, errs.IsNotFoundError(err))

		_, err = s.HGet("user:404", "email")
		require.True(t, errs.IsNotFoundError(err))
	})

	t.Run("HMGet skips missing fields", func(t *testing.T) {
		rec, err := s.HMGet("user:1", "first_name", "longitude")
		require.NoError(t, err)
		require.Equal(t, kv.Record{"first_name": "Ada"}, rec)
	})

	t.Run("keys of different lengths don't overlap", func(t *testing.T) {
		_, err := s.HSet("user:10", kv.Record{"first_name": "Grace"})
		require.NoError(t, err)

		rec, err := s.HGetAll("user:1")
		require.NoError(t, err)
		require.Len(t, rec, 3)
	})

	t.Run("Exists, Type and Del", func(t *testing.T) {
		n, err := s.Exists("user:1", "user:10", "user:404")
		require.NoError(t, err)
		require.Equal(t, 2, n)

		typ, err := s.Type("user:1")
		require.NoError(t, err)
		require.Equal(t, "hash", typ)

		n, err = s.Del("user:10", "user:404")
		require.NoError(t, err)
		require.Equal(t, 1, n)

		typ, err = s.Type("user:10")
		require.NoError(t, err)
		require.Equal(t, "none", typ)

		rec, err := s.HGetAll("user:10")
		require.NoError(t, err)
		require.Empty(t, rec)
	})

	t.Run("HSet without fields", func(t *testing.T) {
		_, err := s.HSet("user:2", nil)
		require.True(t, errors.Is(err, errs.ErrInvalidArgument))
	})
}

func TestRecordFloat(t *testing.T) {
	rec := kv.Record{"latitude": " 42.5", "longitude": "east"}

	f, err := rec.Float("latitude")
	require.NoError(t, err)
	require.Equal(t, 42.5, f)

	_, err = rec.Float("longitude")
	require.True(t, errs.IsMalformedFieldError(err))

	_, err = rec.Float("altitude")
	require.True(t, errs.IsNotFoundError(err))

	require.Equal(t, "40.25", kv.FormatFloat(40.25))
	require.Equal(t, "-3", kv.FormatFloat(-3))
}

func TestSortedSet(t *testing.T) {
	s := testutil.NewStore(t)

	for i := 1; i <= 12; i++ {
		n, err := s.ZAdd("leaderboard:2", fmt.Sprintf("user:%d", i), float64(i*10))
		require.NoError(t, err)
		require.Equal(t, 1, n)
	}

	t.Run("ZAdd updates the score", func(t *testing.T) {
		n, err := s.ZAdd("leaderboard:2", "user:1", 1000)
		require.NoError(t, err)
		require.Equal(t, 0, n)

		score, err := s.ZScore("leaderboard:2", "user:1")
		require.NoError(t, err)
		require.Equal(t, float64(1000), score)

		card, err := s.ZCard("leaderboard:2")
		require.NoError(t, err)
		require.Equal(t, 12, card)
	})

	t.Run("ZRevRange", func(t *testing.T) {
		top, err := s.ZRevRange("leaderboard:2", 0, 2)
		require.NoError(t, err)
		require.Equal(t, []kv.ZMember{
			{Member: "user:1", Score: 1000},
			{Member: "user:12", Score: 120},
			{Member: "user:11", Score: 110},
		}, top)

		all, err := s.ZRevRange("leaderboard:2", 0, -1)
		require.NoError(t, err)
		require.Len(t, all, 12)
		require.True(t, sort.SliceIsSorted(all, func(i, j int) bool { return all[i].Score > all[j].Score }))
	})

	t.Run("ZRange with negative indexes", func(t *testing.T) {
		last, err := s.ZRange("leaderboard:2", -2, -1)
		require.NoError(t, err)
		require.Equal(t, []kv.ZMember{
			{Member: "user:12", Score: 120},
			{Member: "user:1", Score: 1000},
		}, last)

		empty, err := s.ZRange("leaderboard:404", 0, 9)
		require.NoError(t, err)
		require.Empty(t, empty)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := s.HSet("leaderboard:2", kv.Record{"a": "b"})
		require.True(t, errors.Is(err, errs.ErrWrongType))

		_, err = s.HGetAll("leaderboard:2")
		require.True(t, errors.Is(err, errs.ErrWrongType))

		_, err = s.HSet("user:1", kv.Record{"a": "b"})
		require.NoError(t, err)
		_, err = s.ZAdd("user:1", "x", 1)
		require.True(t, errors.Is(err, errs.ErrWrongType))
	})
}

func TestHooks(t *testing.T) {
	s := testutil.NewStore(t)

	type change struct {
		key      string
		old, new kv.Record
	}
	var changes []change
	s.AddHook(kv.HookFunc(func(_ *pebble.Batch, key string, old, new kv.Record) error {
		changes = append(changes, change{key, old, new})
		return nil
	}))

	_, err := s.HSet("user:1", kv.Record{"country": "China"})
	require.NoError(t, err)
	_, err = s.HSet("user:1", kv.Record{"country": "Russia"})
	require.NoError(t, err)
	_, err = s.Del("user:1")
	require.NoError(t, err)

	require.Equal(t, []change{
		{"user:1", kv.Record{}, kv.Record{"country": "China"}},
		{"user:1", kv.Record{"country": "China"}, kv.Record{"country": "Russia"}},
		{"user:1", kv.Record{"country": "Russia"}, nil},
	}, changes)

	t.Run("hook errors abort the write", func(t *testing.T) {
		s.AddHook(kv.HookFunc(func(*pebble.Batch, string, kv.Record, kv.Record) error {
			return errors.New("boom")
		}))

		_, err := s.HSet("user:2", kv.Record{"country": "Peru"})
		require.Error(t, err)

		n, err := s.Exists("user:2")
		require.NoError(t, err)
		require.Zero(t, n)
	})
}

func TestFlushDB(t *testing.T) {
	s := testutil.NewStore(t)

	_, err := s.HSet("user:1", kv.Record{"a": "b"})
	require.NoError(t, err)
	_, err = s.ZAdd("leaderboard:1", "user:1", 1)
	require.NoError(t, err)

	require.NoError(t, s.FlushDB())

	n, err := s.Exists("user:1", "leaderboard:1")
	require.NoError(t, err)
	require.Zero(t, n)
}
