package commands

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v3"
)

// userKey accepts a user key or a bare id.
func userKey(arg string) string {
	if strings.Contains(arg, ":") {
		return arg
	}
	return "user:" + arg
}

func requireArg(cmd *cli.Command) (string, error) {
	arg := cmd.Args().First()
	if arg == "" {
		return "", errors.New(cmd.UsageText)
	}
	return arg, nil
}

// NewQueryCommand returns a cli.Command for "hashkv query".
func NewQueryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Run one of the canned queries",
		Commands: []*cli.Command{
			{
				Name:      "user",
				Usage:     "Print every field of a user",
				UsageText: `hashkv query user <id>`,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireArg(cmd)
					if err != nil {
						return err
					}
					return withSession(cmd, func(s *session) error {
						_, err := s.report().Query1(userKey(id))
						return err
					})
				},
			},
			{
				Name:      "coords",
				Usage:     "Print the longitude and latitude of a user",
				UsageText: `hashkv query coords <id>`,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireArg(cmd)
					if err != nil {
						return err
					}
					return withSession(cmd, func(s *session) error {
						_, err := s.report().Query2(userKey(id))
						return err
					})
				},
			},
			{
				Name:  "even-ids",
				Usage: "List the users whose id doesn't start with an odd digit, with their last name",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(cmd, func(s *session) error {
						_, err := s.report().Query3(ctx)
						return err
					})
				},
			},
			{
				Name:  "females",
				Usage: "List the female users from China or Russia with a latitude between 40 and 46",
				Description: `The females command uses the users index if it exists and answers,
and scans every user key otherwise. Create the index with "hashkv index create".`,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(cmd, func(s *session) error {
						_, err := s.report().Query4(ctx)
						return err
					})
				},
			},
			{
				Name:  "top",
				Usage: "Print the emails of the 10 best players of leaderboard:2",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(cmd, func(s *session) error {
						_, err := s.report().Query5()
						return err
					})
				},
			},
			{
				Name:      "leaderboard",
				Usage:     "Print the best players of a leaderboard",
				UsageText: `hashkv query leaderboard [-n 5] <name>`,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "n",
						Aliases: []string{"count"},
						Value:   5,
						Usage:   "Number of players to print",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name, err := requireArg(cmd)
					if err != nil {
						return err
					}
					return withSession(cmd, func(s *session) error {
						_, err := s.report().Leaderboard(name, int(cmd.Int("n")))
						return err
					})
				},
			},
		},
	}
}
