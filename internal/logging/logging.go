// Package logging provides the structured logger shared by every component.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the narrow interface components depend on, mirroring the shape
// used throughout the teacher codebase (cache.Logger, histogram.Logger,
// plugin.Logger): a Log(level, message) call, plus leveled helpers and
// WithField, so callers never import logrus directly.
type Logger interface {
	Log(level, message string)
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	WithField(key string, value interface{}) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New builds the base logger for a given component ("watcher", "store",
// "index", "api", "supervisor", ...).
func New(component string) Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &logrusLogger{entry: base.WithField("component", component)}
}

// NewWithOutput is used by tests to capture log output.
func NewWithOutput(component string, w io.Writer) Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &logrusLogger{entry: base.WithField("component", component)}
}

func (l *logrusLogger) Log(level, message string) {
	switch level {
	case "debug":
		l.entry.Debug(message)
	case "warn", "warning":
		l.entry.Warn(message)
	case "error":
		l.entry.Error(message)
	default:
		l.entry.Info(message)
	}
}

func (l *logrusLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *logrusLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *logrusLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *logrusLogger) Error(args ...interface{}) { l.entry.Error(args...) }

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}
