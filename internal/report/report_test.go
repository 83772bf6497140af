package report_test

import (
	"bytes"
	"context"
	"strconv"
	"testing"
	"time"

	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/index"
	"github.com/chaisql/hashkv/internal/kv"
	"github.com/chaisql/hashkv/internal/query"
	"github.com/chaisql/hashkv/internal/report"
	"github.com/chaisql/hashkv/internal/scan"
	"github.com/chaisql/hashkv/internal/testutil"
	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var users = []testutil.User{
	{ID: 1, FirstName: "Olga", LastName: "Ivanova", Gender: "female", Country: "Russia", Latitude: "45.1", Longitude: "49.1", Email: "olga@example.com"},
	{ID: 2, FirstName: "Li", LastName: "Wang", Gender: "female", Country: "China", Latitude: "40", Longitude: "116.4", Email: "li@example.com"},
	{ID: 3, FirstName: "Wei", LastName: "Zhang", Gender: "male", Country: "China", Latitude: "41.5", Longitude: "121.5"},
	{ID: 20, FirstName: "Anna", LastName: "Martin", Gender: "female", Country: "France", Latitude: "43", Longitude: "east"},
	{ID: 21, FirstName: "Irina", LastName: "Petrova", Gender: "female", Country: "Russia", Latitude: "46", Email: "irina@example.com"},
}

func newClient(t *testing.T, opts report.Options) (*report.Client, *kv.Store, *bytes.Buffer) {
	t.Helper()

	s := testutil.NewStore(t)
	e := index.New(s, nil)
	testutil.InsertUsers(t, s, users...)

	var buf bytes.Buffer
	return report.New(s, e, &buf, opts), s, &buf
}

func TestQuery1(t *testing.T) {
	c, _, out := newClient(t, report.Options{})

	rec, err := c.Query1("user:1")
	require.NoError(t, err)
	require.Equal(t, users[0].Record(), rec)
	require.Contains(t, out.String(), "  first_name: Olga\n")

	rec, err = c.Query1("user:404")
	require.NoError(t, err)
	require.Nil(t, rec)
	require.Contains(t, out.String(), `User "user:404" not found`)
}

func TestQuery2(t *testing.T) {
	c, _, _ := newClient(t, report.Options{})

	coords, err := c.Query2("user:1")
	require.NoError(t, err)
	require.Equal(t, &report.Coordinates{Longitude: 49.1, Latitude: 45.1}, coords)

	_, err = c.Query2("user:404")
	require.True(t, errs.IsNotFoundError(err))

	// malformed longitude
	_, err = c.Query2("user:20")
	require.True(t, errs.IsMalformedFieldError(err))
	require.False(t, errs.IsNotFoundError(err))

	// missing longitude
	_, err = c.Query2("user:21")
	require.True(t, errs.IsMalformedFieldError(err))
}

func TestEvenFirstDigit(t *testing.T) {
	tests := map[string]bool{
		"user:2":    true,
		"user:20":   true,
		"user:0":    true,
		"user:1":    false,
		"user:13":   false,
		"user:":     false,
		"user":      false,
		"user:x2":   false,
		"user:8abc": true,
	}

	for k, want := range tests {
		t.Run(k, func(t *testing.T) {
			require.Equal(t, want, report.EvenFirstDigit(k))
		})
	}
}

func TestQuery3(t *testing.T) {
	s := testutil.NewStore(t)
	e := index.New(s, nil)
	testutil.NewTestUsers(t, s, 25)
	_, err := s.HSet("city:2", kv.Record{"name": "Paris"})
	require.NoError(t, err)

	var out bytes.Buffer
	c := report.New(s, e, &out, report.Options{PageSize: 4, MaxRetryTime: time.Second})

	res, err := c.Query3(context.Background())
	require.NoError(t, err)
	require.True(t, res.Complete)

	var want []report.UserName
	for _, id := range []int{2, 20, 21, 22, 23, 24, 25, 4, 6, 8} {
		want = append(want, report.UserName{ID: "user:" + strconv.Itoa(id), LastName: "Last" + strconv.Itoa(id)})
	}
	if diff := cmp.Diff(want, res.Users); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	require.Contains(t, out.String(), "Found 10 users")
	require.Contains(t, out.String(), "  user:2: Last2\n")

	t.Run("bounded", func(t *testing.T) {
		c := report.New(s, e, &bytes.Buffer{}, report.Options{PageSize: 4, MaxIterations: 1})

		res, err := c.Query3(context.Background())
		require.NoError(t, err)
		require.False(t, res.Complete)
		// user:1, user:10, user:11, user:12
		require.Empty(t, res.Users)
	})
}

func TestQuery4(t *testing.T) {
	c, _, out := newClient(t, report.Options{PageSize: 2})

	scanned, err := c.Query4(context.Background())
	require.NoError(t, err)
	require.Equal(t, query.SourceScan, scanned.Source)
	require.True(t, scanned.Complete)
	require.Equal(t, []report.UserInfo{
		{ID: "user:1", FirstName: "Olga", LastName: "Ivanova", Country: "Russia", Latitude: "45.1", Email: "olga@example.com"},
		{ID: "user:2", FirstName: "Li", LastName: "Wang", Country: "China", Latitude: "40", Email: "li@example.com"},
		{ID: "user:21", FirstName: "Irina", LastName: "Petrova", Country: "Russia", Latitude: "46", Email: "irina@example.com"},
	}, scanned.Users)

	require.NoError(t, c.CreateUserIndex())
	// recreating drops the previous index
	require.NoError(t, c.CreateUserIndex())
	require.Contains(t, out.String(), `Index "idx:users" dropped`)

	indexed, err := c.Query4(context.Background())
	require.NoError(t, err)
	require.Equal(t, query.SourceIndex, indexed.Source)
	require.Equal(t, scanned.Users, indexed.Users)
	require.Contains(t, out.String(), "Found 3 users (via index)")
}

func TestQuery5(t *testing.T) {
	c, s, out := newClient(t, report.Options{})

	entries, err := c.Query5()
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Contains(t, out.String(), "is empty")

	for i := 1; i <= 12; i++ {
		_, err := s.ZAdd(report.TopLeaderboard, "user:"+strconv.Itoa(i), float64(i*10))
		require.NoError(t, err)
	}
	_, err = s.ZAdd("leaderboard:1", "user:99", 1000)
	require.NoError(t, err)

	entries, err = c.Query5()
	require.NoError(t, err)
	require.Len(t, entries, 10)
	require.Equal(t, report.LeaderboardEntry{Rank: 1, Member: "user:12", Score: 120}, entries[0])
	require.Equal(t, report.LeaderboardEntry{Rank: 10, Member: "user:3", Score: 30}, entries[9])

	_, err = s.ZAdd(report.TopLeaderboard, "user:1", 500)
	require.NoError(t, err)
	entries, err = c.Query5()
	require.NoError(t, err)
	require.Equal(t, report.LeaderboardEntry{Rank: 1, Member: "user:1", Score: 500, Email: "olga@example.com"}, entries[0])
	require.Contains(t, out.String(), "1. user:1 (score: 500) - email: olga@example.com")
	require.Contains(t, out.String(), "- email: not found")
}

func TestLeaderboard(t *testing.T) {
	c, s, out := newClient(t, report.Options{})

	_, err := c.Leaderboard(report.TopLeaderboard, 0)
	require.True(t, errors.Is(err, errs.ErrInvalidArgument))

	top, err := c.Leaderboard(report.TopLeaderboard, 5)
	require.NoError(t, err)
	require.Empty(t, top)

	for i, m := range []string{"user:1", "user:2", "user:3"} {
		_, err := s.ZAdd(report.TopLeaderboard, m, float64(i))
		require.NoError(t, err)
	}

	top, err = c.Leaderboard(report.TopLeaderboard, 2)
	require.NoError(t, err)
	require.Equal(t, []kv.ZMember{{Member: "user:3", Score: 2}, {Member: "user:2", Score: 1}}, top)
	require.Contains(t, out.String(), "Top 2 players of leaderboard:2")
}

func TestScanner(t *testing.T) {
	c, s, _ := newClient(t, report.Options{MaxRetryTime: time.Second})
	_, err := s.HSet("admin:1", kv.Record{"name": "root"})
	require.NoError(t, err)

	res, err := c.Scanner().Scan(context.Background(), "admin:*", scan.MatchAll, 2, 100)
	require.NoError(t, err)
	require.True(t, res.Complete)
	require.Equal(t, []string{"admin:1"}, res.Keys)
}
