package commands

import (
	"context"
	"fmt"

	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/loader"
	"github.com/chaisql/hashkv/internal/report"
	"github.com/urfave/cli/v3"
)

// NewRunCommand returns a cli.Command for "hashkv run".
func NewRunCommand() *cli.Command {
	cmd := cli.Command{
		Name:      "run",
		Usage:     "Load the data files and run every query",
		UsageText: `hashkv run [options]`,
		Description: `The run command clears the database, loads the users and scores files, prints
the top of leaderboard:2 and runs the queries in order: the fields of user:1,
the coordinates of user:1 and user:2, the users with an even first digit,
the creation of the users index, the female users query and the emails of
the top players.

A user with missing or malformed coordinates is reported and doesn't stop the run.`,
		Flags: dataFlags(),
	}

	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		return withSession(cmd, func(s *session) error {
			return runScenario(ctx, s, s.cfg.UsersFile, s.cfg.ScoresFile)
		})
	}

	return &cmd
}

func runScenario(ctx context.Context, s *session, users, scores string) error {
	section := func(name string) {
		fmt.Fprintf(s.out, "\n--- %s ---\n", name)
	}

	if err := s.store.FlushDB(); err != nil {
		return err
	}

	st, err := loader.New(s.store, s.logger).LoadFiles(ctx, users, scores)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Loaded %d users and %d scores\n", st.Users, st.Scores)

	c := s.report()

	section(report.TopLeaderboard)
	if _, err := c.Leaderboard(report.TopLeaderboard, 5); err != nil {
		return err
	}

	section("query1")
	if _, err := c.Query1("user:1"); err != nil {
		return err
	}

	section("query2")
	for _, id := range []string{"user:1", "user:2"} {
		_, err := c.Query2(id)
		if err != nil && !errs.IsNotFoundError(err) && !errs.IsMalformedFieldError(err) {
			return err
		}
	}

	section("query3")
	if _, err := c.Query3(ctx); err != nil {
		return err
	}

	section("query4")
	if err := c.CreateUserIndex(); err != nil {
		return err
	}
	if _, err := c.Query4(ctx); err != nil {
		return err
	}

	section("query5")
	_, err = c.Query5()
	return err
}
