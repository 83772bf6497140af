// Package commands implements the hashkv command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/agnivade/levenshtein"
	"github.com/chaisql/hashkv/internal/config"
	"github.com/chaisql/hashkv/internal/log"
	"github.com/urfave/cli/v3"
)

// NewApp creates the hashkv CLI app.
func NewApp() *cli.Command {
	return &cli.Command{
		Name:  "hashkv",
		Usage: "Query users and leaderboards stored as hashes and sorted sets",
		Description: `hashkv stores user profiles as hashes and leaderboards as sorted sets in a
Pebble database, and answers a fixed set of queries over them.

By default the database lives in memory and is lost when the command exits.
Use -p/--path to keep it on disk:

$ hashkv -p data/ load -u users.txt -s userscores.csv
$ hashkv -p data/ query user 1

The run command loads the files and runs every query in a single process,
which works with the in-memory database:

$ hashkv run -u users.txt -s userscores.csv`,
		EnableShellCompletion: true,
		Flags:                 globalFlags(),
		Commands: []*cli.Command{
			NewLoadCommand(),
			NewQueryCommand(),
			NewIndexCommand(),
			NewScanCommand(),
			NewRunCommand(),
			NewFlushCommand(),
			NewDumpCommand(),
		},
		CommandNotFound: func(ctx context.Context, cmd *cli.Command, name string) {
			w := cmd.Root().ErrWriter
			fmt.Fprintf(w, "Unknown command %q.\n", name)
			displaySuggestions(cmd.Commands, name, w)
		},
	}
}

func env(name string) cli.ValueSourceChain {
	return cli.EnvVars(config.EnvPrefix + name)
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "path",
			Aliases: []string{"p"},
			Usage:   "Path of the database to open or create. If not specified, the database will be in-memory",
			Sources: env("PATH"),
		},
		&cli.IntFlag{
			Name:    "page-size",
			Value:   config.DefaultPageSize,
			Usage:   "Number of keys requested per page when scanning",
			Sources: env("PAGE_SIZE"),
		},
		&cli.IntFlag{
			Name:    "max-iterations",
			Value:   config.DefaultMaxIterations,
			Usage:   "Maximum number of pages fetched by a scan",
			Sources: env("MAX_ITERATIONS"),
		},
		&cli.DurationFlag{
			Name:    "max-retry-time",
			Usage:   "Retry failed page requests for up to this long. Zero disables retries",
			Sources: env("MAX_RETRY_TIME"),
		},
		&cli.StringFlag{
			Name:    "index",
			Value:   config.DefaultIndexName,
			Usage:   "Name of the users index",
			Sources: env("INDEX"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   config.DefaultLogLevel,
			Usage:   "One of panic, fatal, error, warn, info, debug or trace",
			Sources: env("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   log.FormatText,
			Usage:   "Log format, text or json",
			Sources: env("LOG_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    "metrics",
			Usage:   "Print the collected metrics when the command ends",
			Sources: env("METRICS"),
		},
	}
}

func configFromFlags(cmd *cli.Command) (config.Config, error) {
	cfg := config.Default()

	cfg.Path = cmd.String("path")
	cfg.InMemory = cfg.Path == ""
	cfg.PageSize = int(cmd.Int("page-size"))
	cfg.MaxIterations = int(cmd.Int("max-iterations"))
	cfg.MaxRetryTime = cmd.Duration("max-retry-time")
	cfg.IndexName = cmd.String("index")
	cfg.LogLevel = cmd.String("log-level")
	cfg.LogFormat = cmd.String("log-format")
	cfg.Metrics = cmd.Bool("metrics")

	// data files are only known to the commands loading them
	if hasFlag(cmd, "users") {
		cfg.UsersFile = cmd.String("users")
		cfg.ScoresFile = cmd.String("scores")
	}

	return cfg, cfg.Validate()
}

func hasFlag(cmd *cli.Command, name string) bool {
	for _, f := range cmd.Flags {
		for _, n := range f.Names() {
			if n == name {
				return true
			}
		}
	}
	return false
}

func shouldDisplaySuggestion(name, in string) bool {
	// input should be at least half the command size to get a suggestion.
	d := levenshtein.ComputeDistance(name, in)
	return d < (len(name) / 2)
}

// displaySuggestions shows the commands whose name is close to in.
func displaySuggestions(commands []*cli.Command, in string, out io.Writer) {
	var suggestions []string
	for _, c := range commands {
		if shouldDisplaySuggestion(c.Name, in) {
			suggestions = append(suggestions, c.Name)
		}

		for _, alias := range c.Aliases {
			if shouldDisplaySuggestion(alias, in) {
				suggestions = append(suggestions, alias)
			}
		}
	}

	if len(suggestions) == 0 {
		fmt.Fprintln(out, "Run 'hashkv --help' for the list of commands.")
		return
	}

	sort.Strings(suggestions)
	fmt.Fprintln(out, "Did you mean:")
	for _, s := range suggestions {
		fmt.Fprintf(out, "\t%s\n", s)
	}
}
