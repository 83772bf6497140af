package scan

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/log"
	"github.com/sirupsen/logrus"
)

type retryPager struct {
	pager  Pager
	opts   backoff.BackOff
	logger logrus.FieldLogger
}

// Retry returns a Pager retrying the page requests of p that fail
// because the store is unavailable, waiting between attempts as told by b.
// Other errors are returned immediately.
// The returned Pager must not be used concurrently.
func Retry(p Pager, b backoff.BackOff, logger logrus.FieldLogger) Pager {
	return &retryPager{
		pager:  p,
		opts:   b,
		logger: log.OrDiscard(logger),
	}
}

func (r *retryPager) Scan(cursor Cursor, match string, count int) (Cursor, []string, error) {
	var next Cursor
	var keys []string

	r.opts.Reset()
	err := backoff.RetryNotify(func() error {
		var err error
		next, keys, err = r.pager.Scan(cursor, match, count)
		if err != nil && !errs.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, r.opts, func(err error, d time.Duration) {
		r.logger.WithFields(logrus.Fields{
			"cursor":        cursor,
			"wait":          d,
			logrus.ErrorKey: err,
		}).Warn("page request failed, retrying")
	})
	if err != nil {
		return "", nil, err
	}

	return next, keys, nil
}
