package commands

import (
	"io"

	"github.com/chaisql/hashkv/internal/config"
	"github.com/chaisql/hashkv/internal/index"
	"github.com/chaisql/hashkv/internal/kv"
	"github.com/chaisql/hashkv/internal/log"
	"github.com/chaisql/hashkv/internal/metrics"
	"github.com/chaisql/hashkv/internal/report"
	"github.com/chaisql/hashkv/internal/scan"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

// A session holds the database and the components built on top of it
// for the duration of a command.
type session struct {
	cfg     config.Config
	logger  *logrus.Logger
	metrics *metrics.Metrics
	store   *kv.Store
	engine  *index.Engine
	out     io.Writer
}

func openSession(cmd *cli.Command) (*session, error) {
	cfg, err := configFromFlags(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := log.New(log.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cmd.Root().ErrWriter,
	})
	if err != nil {
		return nil, err
	}

	store, err := kv.Open(cfg.DBPath(), &pebble.Options{
		Logger: log.Pebble(logger),
	})
	if err != nil {
		return nil, err
	}

	s := session{
		cfg:    cfg,
		logger: logger,
		store:  store,
		engine: index.New(store, logger),
		out:    cmd.Root().Writer,
	}
	if cfg.Metrics {
		s.metrics = metrics.New()
	}

	logger.WithFields(logrus.Fields{
		"path":      cfg.Path,
		"in_memory": cfg.InMemory,
	}).Debug("database opened")

	return &s, nil
}

func (s *session) report() *report.Client {
	return report.New(s.store, s.engine, s.out, report.Options{
		IndexName:     s.cfg.IndexName,
		PageSize:      s.cfg.PageSize,
		MaxIterations: s.cfg.MaxIterations,
		MaxRetryTime:  s.cfg.MaxRetryTime,
		Logger:        s.logger,
		Metrics:       s.metrics,
	})
}

func (s *session) scanner() *scan.Scanner {
	return s.report().Scanner()
}

// Close prints the metrics, if enabled, and closes the database.
func (s *session) Close() error {
	err := s.metrics.WriteText(s.out)
	return errors.CombineErrors(err, s.store.Close())
}

// withSession opens a session, runs fn and closes the session.
func withSession(cmd *cli.Command, fn func(s *session) error) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, s.Close())
	}()

	return fn(s)
}
