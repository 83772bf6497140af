// Package config holds the settings shared by the commands of hashkv.
package config

import (
	"time"

	errs "github.com/chaisql/hashkv/internal/errors"
	"github.com/chaisql/hashkv/internal/log"
)

// EnvPrefix is the prefix of the environment variables read by the CLI.
const EnvPrefix = "HASHKV_"

// Defaults.
const (
	DefaultPageSize      = 100
	DefaultMaxIterations = 1000
	DefaultIndexName     = "idx:users"
	DefaultUsersFile     = "users.txt"
	DefaultScoresFile    = "userscores.csv"
	DefaultLogLevel      = "info"
)

type Config struct {
	// Path of the Pebble database. Ignored if InMemory is set.
	Path     string
	InMemory bool

	PageSize      int
	MaxIterations int
	IndexName     string
	// MaxRetryTime bounds the time spent retrying a failed page request.
	// Zero disables retries.
	MaxRetryTime time.Duration

	UsersFile  string
	ScoresFile string

	LogLevel  string
	LogFormat string

	// Metrics prints the collected metrics when the command ends.
	Metrics bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		InMemory:      true,
		PageSize:      DefaultPageSize,
		MaxIterations: DefaultMaxIterations,
		IndexName:     DefaultIndexName,
		UsersFile:     DefaultUsersFile,
		ScoresFile:    DefaultScoresFile,
		LogLevel:      DefaultLogLevel,
		LogFormat:     log.FormatText,
	}
}

// Validate returns an invalid argument error describing the first bad setting.
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return errs.InvalidArgumentf("a database path is required unless the database is in memory")
	}
	if c.PageSize <= 0 {
		return errs.InvalidArgumentf("page size must be positive, got %d", c.PageSize)
	}
	if c.MaxIterations <= 0 {
		return errs.InvalidArgumentf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.MaxRetryTime < 0 {
		return errs.InvalidArgumentf("max retry time cannot be negative, got %s", c.MaxRetryTime)
	}
	if c.IndexName == "" {
		return errs.InvalidArgumentf("index name cannot be empty")
	}
	switch c.LogFormat {
	case "", log.FormatText, log.FormatJSON:
	default:
		return errs.InvalidArgumentf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// DBPath returns the path to pass to kv.Open.
func (c *Config) DBPath() string {
	if c.InMemory {
		return ""
	}
	return c.Path
}
