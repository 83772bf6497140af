// Package scan collects the keys of a store matching a predicate by walking
// the keyspace one page at a time.
//
// The store gives no snapshot across pages: a key may be listed twice and
// keys may appear or vanish while the scan runs. Matches are accumulated in a
// set and returned sorted.
package scan

import (
	"context"
	"sort"

	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/log"
	"github.com/chaisql/hashkv/internal/metrics"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
)

// A Cursor marks the progress of a scan. Its meaning is defined by the store.
type Cursor = string

// A Pager returns the keys matching the glob match found from cursor on,
// looking at about count keys, and the cursor of the next page.
// Scanning from the store's start cursor until it returns it again
// visits every key that exists for the whole duration of the scan.
type Pager interface {
	Scan(cursor Cursor, match string, count int) (Cursor, []string, error)
}

// Result of a scan.
type Result struct {
	// Keys matching the predicate, sorted.
	Keys []string
	// Complete is false if the scan was stopped by the iteration bound.
	Complete bool
	// Iterations is the number of pages fetched.
	Iterations int
}

// Scanner runs scans against a Pager.
type Scanner struct {
	pager Pager
	start Cursor

	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics
}

// New returns a scanner. start is the cursor the pager uses to begin a scan
// and to report its end.
func New(p Pager, start Cursor) *Scanner {
	return &Scanner{
		pager:  p,
		start:  start,
		Logger: log.Discard(),
	}
}

// Scan the whole keyspace for keys matching match and pred.
// See ScanFrom.
func (s *Scanner) Scan(ctx context.Context, match string, pred Predicate, pageSize, maxIterations int) (*Result, error) {
	return s.ScanFrom(ctx, s.start, match, pred, pageSize, maxIterations)
}

// ScanFrom scans the keyspace from cursor, until the pager returns the start
// cursor or maxIterations pages were fetched. In the latter case the result
// is returned with Complete set to false.
//
// Keys for which pred returns a not found or malformed field error are skipped.
// Any other error stops the scan, as do page fetch errors, which are never retried.
func (s *Scanner) ScanFrom(ctx context.Context, cursor Cursor, match string, pred Predicate, pageSize, maxIterations int) (*Result, error) {
	if pageSize <= 0 {
		return nil, errs.InvalidArgumentf("page size must be positive, got %d", pageSize)
	}
	if maxIterations <= 0 {
		return nil, errs.InvalidArgumentf("max iterations must be positive, got %d", maxIterations)
	}
	if pred == nil {
		pred = MatchAll
	}

	logger := log.OrDiscard(s.Logger).WithField("match", match)
	set := make(map[string]struct{})

	var res Result
	var round int
	for {
		round++
		if round > maxIterations {
			break
		}

		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		next, keys, err := s.pager.Scan(cursor, match, pageSize)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot fetch page %d at cursor %q", round, cursor)
		}
		res.Iterations++
		s.Metrics.PageFetched()

		for _, k := range keys {
			ok, err := pred(k)
			if err != nil {
				if errs.IsNotFoundError(err) || errs.IsMalformedFieldError(err) {
					logger.WithFields(logrus.Fields{
						"key":           k,
						logrus.ErrorKey: err,
					}).Debug("key skipped")
					continue
				}
				return nil, errors.Wrapf(err, "cannot evaluate key %q", k)
			}
			if ok {
				set[k] = struct{}{}
			}
		}

		if next == s.start {
			res.Complete = true
			break
		}
		cursor = next
	}

	if !res.Complete {
		s.Metrics.ScanIncomplete()
		logger.WithFields(logrus.Fields{
			"iterations": res.Iterations,
			"cursor":     cursor,
		}).Warn("scan stopped before completion")
	}

	res.Keys = maps.Keys(set)
	sort.Strings(res.Keys)
	return &res, nil
}
