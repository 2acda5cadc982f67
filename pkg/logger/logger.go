// Package logger wraps logrus for service-level operational logging.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps a *logrus.Logger, plus whatever fields every entry derived
// from it should carry (set by NewDefault's component tag).
type Logger struct {
	*logrus.Logger
	fields logrus.Fields
}

// Config controls level and format; output always goes to stdout, the
// convention this project's daemons run under (container-friendly).
type Config struct {
	Level  string
	Format string
}

// New builds a Logger from Config, defaulting to info/text on bad input.
func New(cfg Config) *Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)

	return &Logger{Logger: log}
}

// WithComponent returns a Logger tagged with a fixed "component" field,
// carried onto every entry WithField/WithFields derives from it.
func (l *Logger) WithComponent(component string) *Logger {
	fields := make(logrus.Fields, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields["component"] = component
	return &Logger{Logger: l.Logger, fields: fields}
}

// NewDefault builds a Logger tagged with a component name, info level, text
// format — the shape most constructors in this project want.
func NewDefault(component string) *Logger {
	return New(Config{Level: "info", Format: "text"}).WithComponent(component)
}

// WithField returns a derived entry carrying one extra field, plus whatever
// fields this Logger was tagged with (see WithComponent).
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithFields(l.fields).WithField(key, value)
}

// WithFields returns a derived entry carrying several extra fields, plus
// whatever fields this Logger was tagged with (see WithComponent).
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return l.Logger.WithFields(merged)
}
