package loader

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/cockroachdb/errors"
)

// Columns of the scores file.
const (
	columnUser        = "user:id"
	columnScore       = "score"
	columnLeaderboard = "leaderboard"
)

// LoadScores reads a CSV file whose header names the columns user:id,
// score and leaderboard, and adds every user to its leaderboard sorted set.
// Rows with an empty column are skipped. A score that is not an integer
// stops the load.
// It returns the number of scores stored.
func (l *Loader) LoadScores(ctx context.Context, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "cannot read header")
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.TrimSpace(h)] = i
	}
	for _, c := range []string{columnUser, columnScore, columnLeaderboard} {
		if _, ok := columns[c]; !ok {
			return 0, errs.InvalidArgumentf("missing column %q", c)
		}
	}

	get := func(row []string, column string) string {
		i := columns[column]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var n int
	for {
		if err := ctx.Err(); err != nil {
			return n, errors.WithStack(err)
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, errors.Wrap(err, "cannot read scores")
		}
		line, _ := cr.FieldPos(0)

		user, score, board := get(row, columnUser), get(row, columnScore), get(row, columnLeaderboard)
		if user == "" || score == "" || board == "" {
			l.logger.WithField("line", line).Debug("skipping incomplete score")
			continue
		}

		s, err := strconv.Atoi(score)
		if err != nil {
			return n, errs.InvalidArgumentf("line %d: cannot convert score %q of %q to an integer", line, score, user)
		}

		_, err = l.store.ZAdd(board, user, float64(s))
		if err != nil {
			return n, errors.Wrapf(err, "line %d", line)
		}
		n++
	}

	l.logger.WithField("scores", n).Debug("scores loaded")
	return n, nil
}
