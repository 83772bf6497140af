package testutil

import (
	"strconv"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/chaisql/hashkv/internal/kv"
	"github.com/stretchr/testify/require"
)

// NewMemPebble opens an in-memory Pebble database closed at the end of the test.
func NewMemPebble(t testing.TB) *pebble.DB {
	t.Helper()

	pdb, err := pebble.Open("", &pebble.Options{FS: vfs.NewStrictMem()})
	require.NoError(t, err)

	t.Cleanup(func() {
		pdb.Close()
	})

	return pdb
}

// NewStore returns a store backed by an in-memory database.
func NewStore(t testing.TB) *kv.Store {
	t.Helper()

	return kv.NewStore(NewMemPebble(t))
}

// UserKey returns "user:<i>".
func UserKey(i int) string {
	return "user:" + strconv.Itoa(i)
}

// NewTestUsers stores the hashes user:1 to user:n.
// Each user has an id and a last_name field.
func NewTestUsers(t testing.TB, s *kv.Store, n int) {
	t.Helper()

	for i := 1; i <= n; i++ {
		_, err := s.HSet(UserKey(i), kv.Record{
			"id":        strconv.Itoa(i),
			"last_name": "Last" + strconv.Itoa(i),
		})
		require.NoError(t, err)
	}
}

// User is a convenience to build user hashes in tests.
type User struct {
	ID        int
	FirstName string
	LastName  string
	Gender    string
	Country   string
	Latitude  string
	Longitude string
	Email     string
}

// Record returns the hash fields of u. Empty fields are omitted.
func (u User) Record() kv.Record {
	rec := kv.Record{}
	set := func(k, v string) {
		if v != "" {
			rec[k] = v
		}
	}
	set("first_name", u.FirstName)
	set("last_name", u.LastName)
	set("gender", u.Gender)
	set("country", u.Country)
	set("latitude", u.Latitude)
	set("longitude", u.Longitude)
	set("email", u.Email)
	return rec
}

// InsertUsers stores the given users under user:<id>.
func InsertUsers(t testing.TB, s *kv.Store, users ...User) {
	t.Helper()

	for _, u := range users {
		_, err := s.HSet(UserKey(u.ID), u.Record())
		require.NoError(t, err)
	}
}
