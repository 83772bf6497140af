package query

import (
	"context"

	"github.com/chaisql/hashkv/internal/glob"
	"github.com/chaisql/hashkv/internal/log"
	"github.com/chaisql/hashkv/internal/metrics"
	"github.com/chaisql/hashkv/internal/scan"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// Source tells how a result was computed.
type Source int

const (
	SourceIndex Source = iota + 1
	SourceScan
)

func (s Source) String() string {
	switch s {
	case SourceIndex:
		return "index"
	case SourceScan:
		return "scan"
	}
	return "unknown"
}

// Result of a query.
type Result struct {
	// Keys matching the criteria, sorted.
	Keys   []string
	Source Source
	// Complete is false if the scan stopped before visiting the whole keyspace.
	// Index results are always complete.
	Complete bool
}

// Orchestrator answers queries with its strategy and falls back
// to a scan whenever the strategy fails or finds nothing.
type Orchestrator struct {
	strategy Strategy
	scanner  *scan.Scanner
	records  scan.RecordGetter

	PageSize      int
	MaxIterations int
	Logger        logrus.FieldLogger
	Metrics       *metrics.Metrics
}

// NewOrchestrator returns an orchestrator. records loads the hashes
// visited by the fallback scan.
func NewOrchestrator(strategy Strategy, scanner *scan.Scanner, records scan.RecordGetter) *Orchestrator {
	return &Orchestrator{
		strategy:      strategy,
		scanner:       scanner,
		records:       records,
		PageSize:      100,
		MaxIterations: 1000,
	}
}

// Query returns the keys matching match and c.
//
// The strategy is tried first and its result, restricted to the keys
// matching match, is returned if it isn't empty.
// An empty result is not trusted: like a failure, it triggers a scan of the
// keys matching match, evaluating c on every hash. The scan result is
// returned even if it is empty too.
func (o *Orchestrator) Query(ctx context.Context, c Criteria, match string) (*Result, error) {
	logger := log.OrDiscard(o.Logger).WithFields(logrus.Fields{
		"criteria": c.String(),
		"match":    match,
	})

	ids, ok := o.strategy.TryIndexedQuery(c)
	if ok {
		ids = filterKeys(ids, match)
	}
	switch {
	case ok && len(ids) > 0:
		o.Metrics.IndexHit()
		logger.WithField("total", len(ids)).Debug("answered by the index")
		return &Result{Keys: ids, Source: SourceIndex, Complete: true}, nil
	case ok:
		o.Metrics.Fallback(metrics.ReasonIndexEmpty)
		logger.Info("index returned no results, falling back to a scan")
	default:
		o.Metrics.Fallback(metrics.ReasonIndexUnavailable)
		logger.Info("index unavailable, falling back to a scan")
	}

	res, err := o.scanner.Scan(ctx, match, scan.RecordPredicate(o.records, c.Match), o.PageSize, o.MaxIterations)
	if err != nil {
		return nil, errors.Wrap(err, "fallback scan failed")
	}

	return &Result{Keys: res.Keys, Source: SourceScan, Complete: res.Complete}, nil
}

func filterKeys(keys []string, match string) []string {
	if match == "*" {
		return keys
	}

	out := keys[:0:0]
	for _, k := range keys {
		if glob.Match(match, k) {
			out = append(out, k)
		}
	}
	return out
}
