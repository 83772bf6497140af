package commands

import (
	"context"
	"fmt"

	"github.com/chaisql/hashkv/internal/config"
	"github.com/chaisql/hashkv/internal/loader"
	"github.com/urfave/cli/v3"
)

func dataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "users",
			Aliases: []string{"u"},
			Value:   config.Default().UsersFile,
			Usage:   "File of users, one per line as a list of quoted tokens: key followed by field/value pairs",
			Sources: env("USERS_FILE"),
		},
		&cli.StringFlag{
			Name:    "scores",
			Aliases: []string{"s"},
			Value:   config.Default().ScoresFile,
			Usage:   "CSV file of scores with the user:id, score and leaderboard columns",
			Sources: env("SCORES_FILE"),
		},
	}
}

// NewLoadCommand returns a cli.Command for "hashkv load".
func NewLoadCommand() *cli.Command {
	cmd := cli.Command{
		Name:      "load",
		Usage:     "Load users and leaderboard scores",
		UsageText: `hashkv load [options]`,
		Description: `The load command reads the users file and the scores file concurrently
and writes them to the database. Users are stored as hashes, scores are added
to the sorted set named by their leaderboard column.

$ hashkv -p data/ load -u users.txt -s userscores.csv

Users can also be read from a JSON file holding a stream or an array of
objects. Each object must have an "id" field used as the key:

$ hashkv -p data/ load --json users.json --scores ""

An empty path skips the file.`,
		Flags: append(dataFlags(),
			&cli.StringFlag{
				Name:  "json",
				Usage: "JSON file of users, loaded instead of the users file",
			},
			&cli.BoolFlag{
				Name:  "flush",
				Usage: "Remove every key before loading",
			},
		),
	}

	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		return withSession(cmd, func(s *session) error {
			if s.cfg.InMemory {
				s.logger.Warn("the database is in memory, loaded data is lost when the command exits")
			}

			if cmd.Bool("flush") {
				if err := s.store.FlushDB(); err != nil {
					return err
				}
			}

			l := loader.New(s.store, s.logger)

			users, scores := s.cfg.UsersFile, s.cfg.ScoresFile
			if js := cmd.String("json"); js != "" {
				n, err := l.LoadUsersJSONFile(ctx, js)
				if err != nil {
					return err
				}
				fmt.Fprintf(s.out, "Loaded %d users from %s\n", n, js)
				users = ""
			}

			st, err := l.LoadFiles(ctx, users, scores)
			if err != nil {
				return err
			}

			if users != "" {
				fmt.Fprintf(s.out, "Loaded %d users from %s\n", st.Users, users)
			}
			if scores != "" {
				fmt.Fprintf(s.out, "Loaded %d scores from %s\n", st.Scores, scores)
			}
			return nil
		})
	}

	return &cmd
}
