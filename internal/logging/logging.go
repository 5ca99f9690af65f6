// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup configures logrus with a full-timestamp text formatter and a level
// read from the LOG_LEVEL environment variable, and tees output to logPath
// if non-empty via a hook that flushes after every entry.
func Setup(logPath string) error {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(levelFromEnv())

	if logPath == "" {
		return nil
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return err
	}
	logrus.AddHook(&flushingHook{writer: f})
	return nil
}

func levelFromEnv() logrus.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// flushingHook writes every log entry to an underlying file and flushes
// immediately, so a crash never loses the tail of the log.
type flushingHook struct {
	writer *os.File
}

func (h *flushingHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *flushingHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(h.writer, line); err != nil {
		return err
	}
	return h.writer.Sync()
}
