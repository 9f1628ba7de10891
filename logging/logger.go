// Package logging provides the process-wide Logger interface, the same
// minimal Debug/Info/Error shape golang.zx2c4.com/wireguard/device
// defines in device/logger.go, backed by logrus instead of the bare
// log package so subsystems get leveled, structured output.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Level mirrors device.LogLevel* but maps directly onto logrus levels.
type Level = logrus.Level

const (
	LevelError Level = logrus.ErrorLevel
	LevelInfo  Level = logrus.InfoLevel
	LevelDebug Level = logrus.DebugLevel
)

// Logger is the interface every subsystem and protocol acceptor logs
// through. New returns an implementation that wraps a *logrus.Entry.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	// WithField returns a child Logger scoped with an additional
	// field, mirroring device/logger.go's per-component prefixing.
	WithField(key string, value interface{}) Logger
}

type entryLogger struct {
	*logrus.Entry
}

func (l entryLogger) WithField(key string, value interface{}) Logger {
	return entryLogger{l.Entry.WithField(key, value)}
}

// New builds the root Logger at the given level, writing to stderr.
func New(level Level) Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(level)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return entryLogger{logrus.NewEntry(base)}
}

// ParseLevel maps the teleportd -loglevel flag value (the same
// "debug"/"info"/"error" vocabulary facebook/time's cmd/ptp4u uses)
// onto a Level, defaulting to Info on an unrecognized value.
func ParseLevel(s string) Level {
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return LevelInfo
	}
	return lvl
}
