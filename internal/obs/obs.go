// Package obs provides the planner's structured logging, a thin
// constructor-injected wrapper over logrus rather than a package-level
// global, so tests can swap in a discard logger without touching state.
package obs

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the planner's logging handle. It embeds *logrus.Logger so
// callers can use the familiar WithField/WithFields/Infof surface directly.
type Logger struct {
	*logrus.Logger
}

// New returns a Logger writing JSON-formatted entries to w at the given
// level. Passing a nil w defaults to os.Stderr.
func New(level logrus.Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.JSONFormatter{})
	return &Logger{Logger: l}
}

// Discard returns a Logger that drops everything, for tests that don't
// care about log output but still need to satisfy the constructor.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{Logger: l}
}

// Tick returns a per-tick entry pre-populated with the fields every log
// line from one planning cycle shares, mirroring the teacher's pattern of
// attaching request-scoped context once and reusing the derived entry.
func (l *Logger) Tick(tickID int) *logrus.Entry {
	return l.WithField("tick", tickID)
}
