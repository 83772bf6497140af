package commands

import (
	"context"
	"fmt"

	"github.com/chaisql/hashkv/internal/kv"
	"github.com/chaisql/hashkv/internal/scan"
	"github.com/urfave/cli/v3"
)

// NewScanCommand returns a cli.Command for "hashkv scan".
func NewScanCommand() *cli.Command {
	cmd := cli.Command{
		Name:      "scan",
		Usage:     "List the keys matching a glob pattern",
		UsageText: `hashkv scan [options] [pattern]`,
		Description: `The scan command walks the keyspace one page at a time and prints the keys
matching the pattern, sorted. The pattern defaults to '*'.

$ hashkv -p data/ scan 'user:*'

The walk stops after --max-iterations pages, in which case the list is partial.
With --page, a single page is fetched from --cursor and the cursor of the next
page is printed after its keys. A next cursor of 0 means the walk is over:

$ hashkv -p data/ scan --page --cursor 0 'user:*'`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "cursor",
				Value: kv.StartCursor,
				Usage: "Cursor to start from.",
			},
			&cli.BoolFlag{
				Name:  "page",
				Usage: "Fetch a single page.",
			},
		},
	}

	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		match := cmd.Args().First()
		if match == "" {
			match = "*"
		}

		return withSession(cmd, func(s *session) error {
			if cmd.Bool("page") {
				next, keys, err := s.store.Scan(cmd.String("cursor"), match, s.cfg.PageSize)
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(s.out, k)
				}
				fmt.Fprintf(s.out, "next cursor: %s\n", next)
				return nil
			}

			res, err := s.scanner().ScanFrom(ctx, cmd.String("cursor"), match, scan.MatchAll, s.cfg.PageSize, s.cfg.MaxIterations)
			if err != nil {
				return err
			}
			for _, k := range res.Keys {
				fmt.Fprintln(s.out, k)
			}
			if !res.Complete {
				fmt.Fprintf(s.out, "WARNING: scan stopped after %d iterations, results are partial\n", res.Iterations)
			}
			return nil
		})
	}

	return &cmd
}
