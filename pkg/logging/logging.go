package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileLogger returns a logger writing JSON lines to the given path, creating
// parent directories as needed. Falls back to stderr-only when the file
// cannot be opened.
func FileLogger(level logrus.Level, logPath string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return logger, err
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return logger, err
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, f))
	return logger, nil
}

// ConsoleLogger returns a plain-text logger for local development.
func ConsoleLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}
