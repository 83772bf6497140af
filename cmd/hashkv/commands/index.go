package commands

import (
	"context"
	"fmt"
	"strings"

	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/index"
	"github.com/urfave/cli/v3"
)

// parseField parses a schema field written as name:TYPE.
func parseField(s string) (index.Field, error) {
	name, typ, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return index.Field{}, errs.InvalidArgumentf("invalid field %q, expected name:TYPE", s)
	}
	return index.Field{Name: name, Type: index.FieldType(strings.ToUpper(typ))}, nil
}

// indexName returns the first argument, or the configured index name.
func indexName(s *session, cmd *cli.Command) string {
	if name := cmd.Args().First(); name != "" {
		return name
	}
	return s.cfg.IndexName
}

// NewIndexCommand returns a cli.Command for "hashkv index".
func NewIndexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Manage and search the secondary indexes",
		Commands: []*cli.Command{
			newIndexCreateCommand(),
			{
				Name:      "drop",
				Usage:     "Drop an index. The hashes are left untouched",
				UsageText: `hashkv index drop [name]`,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(cmd, func(s *session) error {
						name := indexName(s, cmd)
						if err := s.engine.Drop(name); err != nil {
							return err
						}
						fmt.Fprintf(s.out, "Index %q dropped\n", name)
						return nil
					})
				},
			},
			{
				Name:      "reindex",
				Usage:     "Rebuild an index from the hashes of the database",
				UsageText: `hashkv index reindex [name]`,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(cmd, func(s *session) error {
						name := indexName(s, cmd)
						if err := s.engine.ReIndex(name); err != nil {
							return err
						}
						fmt.Fprintf(s.out, "Index %q rebuilt\n", name)
						return nil
					})
				},
			},
			{
				Name:      "info",
				Usage:     "Print the definition of an index and the number of indexed hashes",
				UsageText: `hashkv index info [name]`,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(cmd, func(s *session) error {
						info, err := s.engine.Info(indexName(s, cmd))
						if err != nil {
							return err
						}
						fmt.Fprintln(s.out, info.Definition)
						fmt.Fprintf(s.out, "num_docs: %d\n", info.NumDocs)
						return nil
					})
				},
			},
			{
				Name:  "list",
				Usage: "List the indexes",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(cmd, func(s *session) error {
						defs, err := s.engine.List()
						if err != nil {
							return err
						}
						for _, d := range defs {
							fmt.Fprintln(s.out, d.Name)
						}
						return nil
					})
				},
			},
			newIndexSearchCommand(),
		},
	}
}

func newIndexCreateCommand() *cli.Command {
	cmd := cli.Command{
		Name:      "create",
		Usage:     "Create an index over hashes",
		UsageText: `hashkv index create [options] [name]`,
		Description: `The create command creates an index and indexes the existing hashes it covers.
Without any field, it drops and creates the users index:

$ hashkv -p data/ index create

Otherwise the index covers the hashes whose key starts with one of the prefixes,
or every hash if there is none:

$ hashkv -p data/ index create --prefix user: -f country:TAG -f latitude:NUMERIC idx:geo

Field types are TEXT, TAG and NUMERIC.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "prefix",
				Usage: "Key prefix of the indexed hashes.",
			},
			&cli.StringSliceFlag{
				Name:    "field",
				Aliases: []string{"f"},
				Usage:   "Field of the schema, as name:TYPE.",
			},
		},
	}

	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		var fields []index.Field
		for _, s := range cmd.StringSlice("field") {
			f, err := parseField(s)
			if err != nil {
				return err
			}
			fields = append(fields, f)
		}

		return withSession(cmd, func(s *session) error {
			if len(fields) == 0 {
				if cmd.Args().Present() {
					s.cfg.IndexName = cmd.Args().First()
				}
				return s.report().CreateUserIndex()
			}

			d := index.Definition{
				Name:     indexName(s, cmd),
				Prefixes: cmd.StringSlice("prefix"),
				Fields:   fields,
			}
			if err := s.engine.Create(&d); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Index %q created\n", d.Name)
			return nil
		})
	}

	return &cmd
}

func newIndexSearchCommand() *cli.Command {
	cmd := cli.Command{
		Name:      "search",
		Usage:     "Search an index",
		UsageText: `hashkv index search [options] query`,
		Description: `The search command runs a query against the index named by --index.

$ hashkv -p data/ index search '@gender:female @country:{China|Russia} @latitude:[40 46]'

Queries are made of words, matched against every TEXT field, and of field
expressions: @field:word for TEXT, @field:{a|b} for TAG and @field:[min max]
for NUMERIC fields. Expressions separated by spaces must all match, and '|'
separates alternatives.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of documents to skip.",
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: index.DefaultLimit,
				Usage: "Maximum number of documents to print. A negative value prints them all.",
			},
			&cli.BoolFlag{
				Name:  "no-content",
				Usage: "Only print the ids of the documents.",
			},
		},
	}

	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		q, err := requireArg(cmd)
		if err != nil {
			return err
		}

		return withSession(cmd, func(s *session) error {
			res, err := s.engine.SearchString(s.cfg.IndexName, q, index.SearchOptions{
				Offset:    int(cmd.Int("offset")),
				Limit:     int(cmd.Int("limit")),
				NoContent: cmd.Bool("no-content"),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(s.out, "Found %d documents\n", res.Total)
			for _, d := range res.Docs {
				fmt.Fprintln(s.out, d.ID)
				for _, f := range d.Fields.Fields() {
					fmt.Fprintf(s.out, "  %s: %s\n", f, d.Fields[f])
				}
			}
			return nil
		})
	}

	return &cmd
}
