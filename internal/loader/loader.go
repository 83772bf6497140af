// Package loader fills a store from user and score files.
package loader

import (
	"context"
	"io"
	"os"

	"github.com/chaisql/hashkv/internal/kv"
	"github.com/chaisql/hashkv/internal/log"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Loader writes the records it reads to a store.
type Loader struct {
	store  *kv.Store
	logger logrus.FieldLogger
}

func New(store *kv.Store, logger logrus.FieldLogger) *Loader {
	return &Loader{
		store:  store,
		logger: log.OrDiscard(logger),
	}
}

// Stats counts the loaded records.
type Stats struct {
	Users  int
	Scores int
}

// LoadFiles loads the users file and the scores file concurrently.
// Either path may be empty to skip it.
func (l *Loader) LoadFiles(ctx context.Context, usersPath, scoresPath string) (*Stats, error) {
	var st Stats

	g, ctx := errgroup.WithContext(ctx)

	if usersPath != "" {
		g.Go(func() error {
			n, err := l.loadFile(ctx, usersPath, l.LoadUsers)
			st.Users = n
			return err
		})
	}

	if scoresPath != "" {
		g.Go(func() error {
			n, err := l.loadFile(ctx, scoresPath, l.LoadScores)
			st.Scores = n
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"users":  st.Users,
		"scores": st.Scores,
	}).Info("files loaded")

	return &st, nil
}

// LoadUsersJSONFile loads the users of a JSON file. See LoadUsersJSON.
func (l *Loader) LoadUsersJSONFile(ctx context.Context, path string) (int, error) {
	return l.loadFile(ctx, path, l.LoadUsersJSON)
}

func (l *Loader) loadFile(ctx context.Context, path string, load func(ctx context.Context, r io.Reader) (int, error)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "cannot open %q", path)
	}
	defer f.Close()

	n, err := load(ctx, f)
	if err != nil {
		return n, errors.Wrapf(err, "cannot load %q", path)
	}
	return n, nil
}
