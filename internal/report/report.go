// Package report runs the canned queries over the user and leaderboard data
// and prints a short summary of each.
package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/index"
	"github.com/chaisql/hashkv/internal/kv"
	"github.com/chaisql/hashkv/internal/log"
	"github.com/chaisql/hashkv/internal/metrics"
	"github.com/chaisql/hashkv/internal/query"
	"github.com/chaisql/hashkv/internal/scan"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

const (
	// UsersIndex is the default name of the index over the user hashes.
	UsersIndex = "idx:users"
	// UsersMatch matches the keys of the user hashes.
	UsersMatch = "user:*"
	// Query3Cursor is the keyspace position Query3 starts from.
	Query3Cursor = "1280"
	// TopLeaderboard is the leaderboard of Query5.
	TopLeaderboard = "leaderboard:2"

	sampleSize = 5
)

// Options configure a Client. Zero values are replaced by defaults.
type Options struct {
	IndexName     string
	PageSize      int
	MaxIterations int
	// MaxRetryTime bounds the time spent retrying a page request. Zero disables retries.
	MaxRetryTime time.Duration
	Logger       logrus.FieldLogger
	Metrics      *metrics.Metrics
}

// Client runs the queries and writes their report to its output.
type Client struct {
	store        *kv.Store
	engine       *index.Engine
	scanner      *scan.Scanner
	orchestrator *query.Orchestrator
	out          io.Writer
	opts         Options
}

// New returns a client writing its reports to out.
func New(store *kv.Store, engine *index.Engine, out io.Writer, opts Options) *Client {
	if opts.IndexName == "" {
		opts.IndexName = UsersIndex
	}
	if opts.PageSize == 0 {
		opts.PageSize = 100
	}
	if opts.MaxIterations == 0 {
		opts.MaxIterations = 1000
	}
	opts.Logger = log.OrDiscard(opts.Logger)

	var pager scan.Pager = store
	if opts.MaxRetryTime > 0 {
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = opts.MaxRetryTime
		pager = scan.Retry(store, b, opts.Logger)
	}

	sc := scan.New(pager, kv.StartCursor)
	sc.Logger = opts.Logger
	sc.Metrics = opts.Metrics

	o := query.NewOrchestrator(query.NewIndexedStrategy(engine, opts.IndexName, opts.Logger), sc, store)
	o.PageSize = opts.PageSize
	o.MaxIterations = opts.MaxIterations
	o.Logger = opts.Logger
	o.Metrics = opts.Metrics

	return &Client{
		store:        store,
		engine:       engine,
		scanner:      sc,
		orchestrator: o,
		out:          out,
		opts:         opts,
	}
}

// Scanner returns the scanner used by the fallback of the queries.
// Its pager retries failed page requests if Options.MaxRetryTime is set.
func (c *Client) Scanner() *scan.Scanner {
	return c.scanner
}

func (c *Client) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

// Query1 returns every field of the user. It returns nil if the user doesn't exist.
func (c *Client) Query1(id string) (kv.Record, error) {
	c.printf("Retrieving all attributes of %s\n", id)

	rec, err := c.store.HGetAll(id)
	if err != nil {
		return nil, err
	}
	if len(rec) == 0 {
		c.printf("User %q not found\n", id)
		return nil, nil
	}

	for _, f := range rec.Fields() {
		c.printf("  %s: %s\n", f, rec[f])
	}
	return rec, nil
}

// Coordinates of a user.
type Coordinates struct {
	Longitude float64
	Latitude  float64
}

// Query2 returns the coordinates of the user.
// It returns a NotFoundError if the user doesn't exist and a
// MalformedFieldError if a coordinate is missing or is not a number.
func (c *Client) Query2(id string) (*Coordinates, error) {
	c.printf("Retrieving coordinates of %s\n", id)

	rec, err := c.store.HMGet(id, "longitude", "latitude")
	if err != nil {
		return nil, err
	}

	if len(rec) < 2 {
		n, err := c.store.Exists(id)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			c.printf("User %q not found\n", id)
			return nil, errors.WithStack(errs.NotFoundError{Name: id})
		}
	}

	var coords Coordinates
	for _, coord := range []struct {
		field string
		dst   *float64
	}{
		{"longitude", &coords.Longitude},
		{"latitude", &coords.Latitude},
	} {
		field, dst := coord.field, coord.dst
		v, ok := rec[field]
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if !ok || err != nil {
			c.printf("User %q has a missing or malformed %s: %q\n", id, field, v)
			return nil, errors.WithStack(errs.MalformedFieldError{Key: id, Field: field, Value: v})
		}
		*dst = f
	}

	c.printf("  longitude=%s latitude=%s\n", kv.FormatFloat(coords.Longitude), kv.FormatFloat(coords.Latitude))
	return &coords, nil
}

// UserName pairs a user key with its last name.
type UserName struct {
	ID       string
	LastName string
}

// Query3Result lists the users found by Query3.
type Query3Result struct {
	Users    []UserName
	Complete bool
}

// EvenFirstDigit reports whether the id part of a user key
// starts with an even digit.
func EvenFirstDigit(key string) bool {
	_, id, ok := strings.Cut(key, ":")
	if !ok || id == "" {
		return false
	}
	return strings.IndexByte("02468", id[0]) >= 0
}

// Query3 returns the users whose id doesn't start with an odd digit
// and their last name, scanning the keyspace from Query3Cursor.
func (c *Client) Query3(ctx context.Context) (*Query3Result, error) {
	c.printf("Scanning users whose id doesn't start with an odd digit\n")

	res, err := c.scanner.ScanFrom(ctx, Query3Cursor, UsersMatch, scan.KeyPredicate(EvenFirstDigit), c.opts.PageSize, c.opts.MaxIterations)
	if err != nil {
		return nil, err
	}

	out := Query3Result{
		Users:    make([]UserName, 0, len(res.Keys)),
		Complete: res.Complete,
	}
	for _, k := range res.Keys {
		rec, err := c.store.HMGet(k, "last_name")
		if err != nil {
			return nil, err
		}
		out.Users = append(out.Users, UserName{ID: k, LastName: rec["last_name"]})
	}

	if !res.Complete {
		c.printf("WARNING: scan stopped after %d iterations, results are partial\n", res.Iterations)
	}
	c.printf("Found %d users\n", len(out.Users))
	for _, u := range out.Users[:min(sampleSize, len(out.Users))] {
		c.printf("  %s: %s\n", u.ID, u.LastName)
	}

	return &out, nil
}

// UsersIndexDefinition returns the definition of the index used by Query4.
func UsersIndexDefinition(name string) *index.Definition {
	return &index.Definition{
		Name:     name,
		Prefixes: []string{"user:"},
		Fields: []index.Field{
			{Name: "gender", Type: index.Text},
			{Name: "country", Type: index.Tag},
			{Name: "latitude", Type: index.Numeric},
			{Name: "first_name", Type: index.Text},
		},
	}
}

// CreateUserIndex drops the users index if it exists and creates it again.
func (c *Client) CreateUserIndex() error {
	name := c.opts.IndexName

	err := c.engine.Drop(name)
	switch {
	case err == nil:
		c.printf("Index %q dropped\n", name)
	case !errs.IsNotFoundError(err):
		return err
	}

	err = c.engine.Create(UsersIndexDefinition(name))
	if err != nil {
		return err
	}

	c.printf("Index %q created\n", name)
	return nil
}

// UserInfo is a user found by Query4.
type UserInfo struct {
	ID        string
	FirstName string
	LastName  string
	Country   string
	Latitude  string
	Email     string
}

// Query4Result lists the users found by Query4.
type Query4Result struct {
	Users    []UserInfo
	Source   query.Source
	Complete bool
}

// Query4Criteria selects the female users from China or Russia
// whose latitude is between 40 and 46.
var Query4Criteria = query.And(
	query.Eq("gender", "female"),
	query.In("country", "China", "Russia"),
	query.Between("latitude", 40, 46),
)

// Query4 returns the users matching Query4Criteria, using the users index
// if it can answer and scanning the user keys otherwise.
func (c *Client) Query4(ctx context.Context) (*Query4Result, error) {
	c.printf("Finding female users in China or Russia with a latitude between 40 and 46\n")

	res, err := c.orchestrator.Query(ctx, Query4Criteria, UsersMatch)
	if err != nil {
		return nil, err
	}

	out := Query4Result{
		Users:    make([]UserInfo, 0, len(res.Keys)),
		Source:   res.Source,
		Complete: res.Complete,
	}
	for _, k := range res.Keys {
		rec, err := c.store.HGetAll(k)
		if err != nil {
			return nil, err
		}
		out.Users = append(out.Users, UserInfo{
			ID:        k,
			FirstName: rec["first_name"],
			LastName:  rec["last_name"],
			Country:   rec["country"],
			Latitude:  rec["latitude"],
			Email:     rec["email"],
		})
	}

	c.printf("Found %d users (via %s)\n", len(out.Users), out.Source)
	for _, u := range out.Users[:min(sampleSize, len(out.Users))] {
		c.printf("  %s: %s %s from %s (lat: %s)\n", u.ID, u.FirstName, u.LastName, u.Country, u.Latitude)
	}

	return &out, nil
}

// LeaderboardEntry is a player of a leaderboard.
type LeaderboardEntry struct {
	Rank   int
	Member string
	Score  float64
	// Email is empty if the player has none.
	Email string
}

// Leaderboard prints and returns the n best players of the leaderboard.
func (c *Client) Leaderboard(name string, n int) ([]kv.ZMember, error) {
	if n <= 0 {
		return nil, errs.InvalidArgumentf("leaderboard size must be positive, got %d", n)
	}

	top, err := c.store.ZRevRange(name, 0, n-1)
	if err != nil {
		return nil, err
	}
	if len(top) == 0 {
		c.printf("Leaderboard %q is empty\n", name)
		return nil, nil
	}

	c.printf("Top %d players of %s\n", len(top), name)
	for i, m := range top {
		c.printf("  %d. %s (score: %s)\n", i+1, m.Member, kv.FormatFloat(m.Score))
	}
	return top, nil
}

// Query5 returns the top 10 players of TopLeaderboard with their email.
func (c *Client) Query5() ([]LeaderboardEntry, error) {
	c.printf("Retrieving the emails of the top 10 players of %s\n", TopLeaderboard)

	top, err := c.store.ZRevRange(TopLeaderboard, 0, 9)
	if err != nil {
		return nil, err
	}
	if len(top) == 0 {
		c.printf("Leaderboard %q is empty\n", TopLeaderboard)
		return nil, nil
	}

	entries := make([]LeaderboardEntry, 0, len(top))
	for i, m := range top {
		rec, err := c.store.HMGet(m.Member, "email")
		if err != nil {
			return nil, err
		}

		e := LeaderboardEntry{Rank: i + 1, Member: m.Member, Score: m.Score, Email: rec["email"]}
		entries = append(entries, e)

		email := e.Email
		if email == "" {
			email = "not found"
		}
		c.printf("  %d. %s (score: %s) - email: %s\n", e.Rank, e.Member, kv.FormatFloat(e.Score), email)
	}

	return entries, nil
}
