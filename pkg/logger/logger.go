// Package logger provides the structured logging facade used across the
// bridge layer. It wraps logrus so services depend on a single narrow type
// rather than the logging backend.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls construction of a Logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Empty defaults to info.
	Level string
	// Format is "json" or "text". Empty defaults to text.
	Format string
	// Output is "stdout", "stderr" or "file". Empty defaults to stdout.
	Output string
	// FilePrefix is the path prefix for file output; the current date and a
	// .log suffix are appended.
	FilePrefix string
}

// Logger is a thin wrapper around a logrus logger with a fixed set of
// contextual fields.
type Logger struct {
	root   *logrus.Logger
	fields logrus.Fields
}

// New builds a Logger from the provided configuration.
func New(cfg LoggingConfig) *Logger {
	root := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	root.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		root.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "stderr":
		root.SetOutput(os.Stderr)
	case "file":
		if w, err := openLogFile(cfg.FilePrefix); err != nil {
			root.SetOutput(os.Stderr)
			root.WithError(err).Warn("falling back to stderr log output")
		} else {
			root.SetOutput(w)
		}
	default:
		root.SetOutput(os.Stdout)
	}

	return &Logger{root: root, fields: logrus.Fields{}}
}

// NewDefault returns a text logger at info level tagged with the given
// service name. Service constructors call this when no logger is supplied.
func NewDefault(service string) *Logger {
	root := logrus.New()
	root.SetLevel(logrus.InfoLevel)
	root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	root.SetOutput(os.Stdout)

	fields := logrus.Fields{}
	if service = strings.TrimSpace(service); service != "" {
		fields["service"] = service
	}
	return &Logger{root: root, fields: fields}
}

func openLogFile(prefix string) (io.Writer, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, fmt.Errorf("log file prefix not configured")
	}
	name := fmt.Sprintf("%s-%s.log", prefix, time.Now().UTC().Format("2006-01-02"))
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// SetOutput redirects all log output, primarily for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.root.SetOutput(w)
}

// SetLevel adjusts the minimum emitted level.
func (l *Logger) SetLevel(level logrus.Level) {
	l.root.SetLevel(level)
}

func (l *Logger) entry() *logrus.Entry {
	return l.root.WithFields(l.fields)
}

// WithField returns an entry carrying an additional field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.entry().WithField(key, value)
}

// WithFields returns an entry carrying additional fields.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.entry().WithFields(fields)
}

// WithError returns an entry carrying the error field.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.entry().WithError(err)
}

func (l *Logger) Debug(args ...interface{}) { l.entry().Debug(args...) }
func (l *Logger) Info(args ...interface{})  { l.entry().Info(args...) }
func (l *Logger) Warn(args ...interface{})  { l.entry().Warn(args...) }
func (l *Logger) Error(args ...interface{}) { l.entry().Error(args...) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.entry().Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry().Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry().Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry().Errorf(format, args...) }
