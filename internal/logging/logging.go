// Package logging holds the logger shared by the preprocessor packages.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"

	// DefaultLogFormat is the format used until SetLogFormat is called.
	DefaultLogFormat LogFormat = LogFormatText

	// DefaultLogLevel only lets warnings and errors through. Expansion traces
	// are logged at debug level.
	DefaultLogLevel logrus.Level = logrus.WarnLevel
)

// DefaultLogger is the base logger. It is separate from the logrus standard
// logger so that importing programs keep control of their own output.
var DefaultLogger = initializeDefaultLogger()

func initializeDefaultLogger() (logger *logrus.Logger) {
	logger = logrus.New()
	logger.SetFormatter(GetFormatter(DefaultLogFormat))
	logger.SetLevel(DefaultLogLevel)
	return
}

// GetFormatter returns the logrus.Formatter for format, or nil if the format
// is unknown.
func GetFormatter(format LogFormat) logrus.Formatter {
	switch format {
	case LogFormatText:
		return &logrus.TextFormatter{
			DisableTimestamp: true,
			DisableColors:    true,
		}
	case LogFormatJSON:
		return &logrus.JSONFormatter{
			DisableTimestamp: true,
		}
	}
	return nil
}

// ParseLogFormat validates a user supplied format name.
func ParseLogFormat(s string) (LogFormat, error) {
	f := LogFormat(strings.ToLower(s))
	if GetFormatter(f) == nil {
		return "", fmt.Errorf("incorrect log format %q, expected 'text' or 'json'", s)
	}
	return f, nil
}

// SetLogLevel updates the DefaultLogger with a new logrus.Level
func SetLogLevel(level logrus.Level) {
	DefaultLogger.SetLevel(level)
}

// SetLogLevelToDebug updates the DefaultLogger with the logrus.DebugLevel
func SetLogLevelToDebug() {
	DefaultLogger.SetLevel(logrus.DebugLevel)
}

// SetLogFormat updates the DefaultLogger with a new LogFormat
func SetLogFormat(format LogFormat) {
	DefaultLogger.SetFormatter(GetFormatter(format))
}

// SetOutput redirects the DefaultLogger.
func SetOutput(w io.Writer) {
	DefaultLogger.SetOutput(w)
}
