package index_test

import (
	"testing"

	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/index"
	"github.com/chaisql/hashkv/internal/kv"
	"github.com/chaisql/hashkv/internal/testutil"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func usersIndex() *index.Definition {
	return &index.Definition{
		Name:     "idx:users",
		Prefixes: []string{"user:"},
		Fields: []index.Field{
			{Name: "gender", Type: index.Text},
			{Name: "country", Type: index.Tag},
			{Name: "latitude", Type: index.Numeric},
			{Name: "first_name", Type: index.Text},
		},
	}
}

var users = []testutil.User{
	{ID: 1, FirstName: "Olga", Gender: "female", Country: "Russia", Latitude: "45.1"},
	{ID: 2, FirstName: "Li", Gender: "female", Country: "China", Latitude: "40"},
	{ID: 3, FirstName: "Wei", Gender: "male", Country: "China", Latitude: "41.5"},
	{ID: 4, FirstName: "Mei", Gender: "female", Country: "China", Latitude: "30.2"},
	{ID: 5, FirstName: "Anna", Gender: "female", Country: "France", Latitude: "43"},
	{ID: 6, FirstName: "Irina", Gender: "female", Country: "Russia", Latitude: "46"},
	{ID: 7, FirstName: "Ivan Petrovich", Gender: "male", Country: "Russia", Latitude: "not a number"},
}

func setup(t *testing.T) (*kv.Store, *index.Engine) {
	t.Helper()

	s := testutil.NewStore(t)
	e := index.New(s, nil)
	testutil.InsertUsers(t, s, users...)

	return s, e
}

func search(t *testing.T, e *index.Engine, q string) []string {
	t.Helper()

	res, err := e.SearchString("idx:users", q, index.SearchOptions{Limit: -1})
	require.NoError(t, err)
	return res.IDs()
}

func TestEngineCreate(t *testing.T) {
	s, e := setup(t)

	// not covered by the prefix
	_, err := s.HSet("admin:1", kv.Record{"gender": "female"})
	require.NoError(t, err)

	require.NoError(t, e.Create(usersIndex()))

	info, err := e.Info("idx:users")
	require.NoError(t, err)
	require.Equal(t, 7, info.NumDocs)
	require.Equal(t, usersIndex(), info.Definition)

	err = e.Create(usersIndex())
	require.True(t, errs.IsAlreadyExistsError(err))

	err = e.Create(&index.Definition{Name: "bad"})
	require.True(t, errors.Is(err, errs.ErrInvalidArgument))

	defs, err := e.List()
	require.NoError(t, err)
	require.Len(t, defs, 1)
	require.Equal(t, "idx:users", defs[0].Name)
}

func TestEngineSearch(t *testing.T) {
	_, e := setup(t)
	require.NoError(t, e.Create(usersIndex()))

	tests := []struct {
		q    string
		want []string
	}{
		{"*", []string{"user:1", "user:2", "user:3", "user:4", "user:5", "user:6", "user:7"}},
		{"@gender:female", []string{"user:1", "user:2", "user:4", "user:5", "user:6"}},
		{"@gender:FEMALE", []string{"user:1", "user:2", "user:4", "user:5", "user:6"}},
		{"@country:{china}", []string{"user:2", "user:3", "user:4"}},
		{"@country:{China|Russia}", []string{"user:1", "user:2", "user:3", "user:4", "user:6", "user:7"}},
		{"@latitude:[40 46]", []string{"user:1", "user:2", "user:3", "user:5", "user:6"}},
		{"@latitude:[(40 (46]", []string{"user:1", "user:3", "user:5"}},
		{"@latitude:[-inf 35]", []string{"user:4"}},
		{"@latitude:[46 40]", nil},
		{"@first_name:ivan", []string{"user:7"}},
		{"@first_name:(petrovich ivan)", []string{"user:7"}},
		{"@first_name:(petrovich anna)", nil},
		{"male", []string{"user:3", "user:7"}},
		{"@gender:female ((@country:{China}) | (@country:{Russia})) @latitude:[40 46]", []string{"user:1", "user:2", "user:6"}},
		{"@country:{Japan}", nil},
	}

	for _, test := range tests {
		t.Run(test.q, func(t *testing.T) {
			got := search(t, e, test.q)
			if test.want == nil {
				require.Empty(t, got)
				return
			}
			require.Equal(t, test.want, got)
		})
	}
}

func TestEngineSearchDocuments(t *testing.T) {
	_, e := setup(t)
	require.NoError(t, e.Create(usersIndex()))

	res, err := e.SearchString("idx:users", "@country:{Russia}", index.SearchOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, res.Total)
	require.Equal(t, "user:1", res.Docs[0].ID)
	require.Equal(t, users[0].Record(), res.Docs[0].Fields)

	t.Run("offset and limit", func(t *testing.T) {
		res, err := e.SearchString("idx:users", "*", index.SearchOptions{Offset: 2, Limit: 3})
		require.NoError(t, err)
		require.Equal(t, 7, res.Total)
		require.Equal(t, []string{"user:3", "user:4", "user:5"}, res.IDs())

		res, err = e.SearchString("idx:users", "*", index.SearchOptions{Offset: 10})
		require.NoError(t, err)
		require.Equal(t, 7, res.Total)
		require.Empty(t, res.Docs)
	})

	t.Run("default limit", func(t *testing.T) {
		s := testutil.NewStore(t)
		e := index.New(s, nil)
		testutil.NewTestUsers(t, s, 25)
		require.NoError(t, e.Create(&index.Definition{
			Name:   "idx:all",
			Fields: []index.Field{{Name: "last_name", Type: index.Text}},
		}))

		res, err := e.SearchString("idx:all", "*", index.SearchOptions{})
		require.NoError(t, err)
		require.Equal(t, 25, res.Total)
		require.Len(t, res.Docs, index.DefaultLimit)
	})
}

func TestEngineSearchErrors(t *testing.T) {
	_, e := setup(t)
	require.NoError(t, e.Create(usersIndex()))

	t.Run("missing index", func(t *testing.T) {
		_, err := e.SearchString("idx:nope", "*", index.SearchOptions{})
		require.True(t, errs.IsNotFoundError(err))

		_, err = e.Info("idx:nope")
		require.True(t, errs.IsNotFoundError(err))
	})

	for _, q := range []string{
		"@gender:{female}",
		"@country:china",
		"@country:[1 2]",
		"@unknown:x",
		"@latitude:{1}",
		"@country:{",
	} {
		t.Run(q, func(t *testing.T) {
			_, err := e.SearchString("idx:users", q, index.SearchOptions{})
			require.Error(t, err)
			require.True(t, errors.Is(err, errs.ErrInvalidArgument))
		})
	}
}

func TestEngineHook(t *testing.T) {
	s, e := setup(t)
	require.NoError(t, e.Create(usersIndex()))

	t.Run("new hash", func(t *testing.T) {
		testutil.InsertUsers(t, s, testutil.User{ID: 8, Gender: "female", Country: "Russia", Latitude: "44"})
		require.Contains(t, search(t, e, "@country:{russia} @latitude:[44 44]"), "user:8")
	})

	t.Run("updated field", func(t *testing.T) {
		_, err := s.HSet("user:8", kv.Record{"country": "China"})
		require.NoError(t, err)

		require.NotContains(t, search(t, e, "@country:{russia}"), "user:8")
		require.Contains(t, search(t, e, "@country:{china}"), "user:8")
		// untouched fields stay indexed
		require.Contains(t, search(t, e, "@latitude:[44 44]"), "user:8")
	})

	t.Run("deleted hash", func(t *testing.T) {
		_, err := s.Del("user:8")
		require.NoError(t, err)

		require.NotContains(t, search(t, e, "*"), "user:8")
		require.NotContains(t, search(t, e, "@country:{china}"), "user:8")
	})

	t.Run("outside prefix", func(t *testing.T) {
		_, err := s.HSet("city:1", kv.Record{"country": "China"})
		require.NoError(t, err)
		require.NotContains(t, search(t, e, "@country:{china}"), "city:1")
	})

	t.Run("reindex", func(t *testing.T) {
		before := search(t, e, "*")
		require.NoError(t, e.ReIndex("idx:users"))
		require.Equal(t, before, search(t, e, "*"))
	})
}

func TestEngineDrop(t *testing.T) {
	s, e := setup(t)
	require.NoError(t, e.Create(usersIndex()))

	require.NoError(t, e.Drop("idx:users"))

	_, err := e.Info("idx:users")
	require.True(t, errs.IsNotFoundError(err))

	err = e.Drop("idx:users")
	require.True(t, errs.IsNotFoundError(err))

	// hashes are kept
	n, err := s.Exists("user:1", "user:7")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// recreating indexes the same documents again
	require.NoError(t, e.Create(usersIndex()))
	require.Len(t, search(t, e, "*"), 7)
}

func TestEnginePersistence(t *testing.T) {
	pdb := testutil.NewMemPebble(t)

	s := kv.NewStore(pdb)
	e := index.New(s, nil)
	testutil.InsertUsers(t, s, users...)
	require.NoError(t, e.Create(usersIndex()))

	// a new engine on the same database sees the index and maintains it
	s2 := kv.NewStore(pdb)
	e2 := index.New(s2, nil)
	testutil.InsertUsers(t, s2, testutil.User{ID: 9, Gender: "male", Country: "Japan"})

	res, err := e2.SearchString("idx:users", "@country:{japan}", index.SearchOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"user:9"}, res.IDs())
}

func TestEngineSearchNoContent(t *testing.T) {
	_, e := setup(t)
	require.NoError(t, e.Create(usersIndex()))

	res, err := e.SearchString("idx:users", "@country:{russia}", index.SearchOptions{NoContent: true})
	require.NoError(t, err)
	require.Equal(t, []string{"user:1", "user:6", "user:7"}, res.IDs())
	for _, d := range res.Docs {
		require.Nil(t, d.Fields)
	}
}

func TestEngineNegativeZero(t *testing.T) {
	s := testutil.NewStore(t)
	e := index.New(s, nil)
	testutil.InsertUsers(t, s,
		testutil.User{ID: 1, Latitude: "0.5"},
		testutil.User{ID: 2, Latitude: "-0"},
		testutil.User{ID: 3, Latitude: "-2"},
	)
	require.NoError(t, e.Create(usersIndex()))

	require.Equal(t, []string{"user:1", "user:2"}, search(t, e, "@latitude:[-1 1]"))
	require.Equal(t, []string{"user:2"}, search(t, e, "@latitude:[0 0]"))
	require.Equal(t, []string{"user:2", "user:3"}, search(t, e, "@latitude:[-inf 0]"))
}
