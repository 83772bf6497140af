package log

import (
	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus"
)

// PebbleLogger writes the messages of Pebble to a logrus logger.
// Pebble reports flushes and compactions at info level, they are logged at debug level.
type PebbleLogger struct {
	Logger logrus.FieldLogger
}

var _ pebble.Logger = PebbleLogger{}

// Pebble returns a Pebble logger writing to l.
func Pebble(l logrus.FieldLogger) PebbleLogger {
	return PebbleLogger{Logger: OrDiscard(l).WithField("component", "pebble")}
}

// Infof implements pebble.Logger.
func (l PebbleLogger) Infof(format string, args ...interface{}) {
	l.Logger.Debugf(format, args...)
}

// Fatalf implements pebble.Logger.
func (l PebbleLogger) Fatalf(format string, args ...interface{}) {
	l.Logger.Fatalf(format, args...)
}
