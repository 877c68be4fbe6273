package logging

import (
	"io"
	"os"

	"github.com/example/cardbot/internal/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// New builds the application logger from the log section of the config.
func New(cfg config.LogConfig) (*logrus.Logger, error) {
	return newWithOutput(cfg, os.Stderr)
}

func newWithOutput(cfg config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, errors.Errorf("invalid log format %q", cfg.Format)
	}
	return logger, nil
}

// Discard returns a logger that drops everything. Used by tests and by
// CLI commands that print their own output.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
