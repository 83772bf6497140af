package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// NewFlushCommand returns a cli.Command for "hashkv flush".
func NewFlushCommand() *cli.Command {
	cmd := cli.Command{
		Name:        "flush",
		Usage:       "Remove every key of the database",
		UsageText:   `hashkv -p data/ flush`,
		Description: `The flush command removes every hash, sorted set and index of the database.`,
	}

	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		return withSession(cmd, func(s *session) error {
			if err := s.store.FlushDB(); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "Database cleared")
			return nil
		})
	}

	return &cmd
}
