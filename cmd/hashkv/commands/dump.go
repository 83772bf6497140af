package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/pebble"
	"github.com/urfave/cli/v3"
)

// NewDumpCommand returns a cli.Command for "hashkv dump".
func NewDumpCommand() *cli.Command {
	cmd := cli.Command{
		Name:      "dump",
		Usage:     "Outputs the content of the Pebble database",
		UsageText: `hashkv -p data/ dump`,
		Description: `The dump command outputs every key and value of the Pebble database, as quoted
strings, in key order. Keys of different namespaces are separated by an empty line.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "keys-only",
				Aliases: []string{"k"},
				Usage:   "Only output the keys.",
			},
		},
	}

	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		return withSession(cmd, func(s *session) error {
			return dumpPebble(ctx, s.store.DB(), s.out, cmd.Bool("keys-only"))
		})
	}

	return &cmd
}

func dumpPebble(ctx context.Context, db *pebble.DB, w io.Writer, keysOnly bool) error {
	iter := db.NewIter(nil)
	defer iter.Close()

	var curns byte
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		k := iter.Key()
		if curns != 0 && k[0] != curns {
			fmt.Fprintln(w)
		}
		curns = k[0]

		if keysOnly {
			fmt.Fprintf(w, "%q\n", k)
		} else {
			fmt.Fprintf(w, "%q: %q\n", k, iter.Value())
		}
	}

	return iter.Error()
}
