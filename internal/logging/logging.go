// Package logging builds the process logger from the log section of opsdesk.yml.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"opsdesk/internal/config"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// New returns a logger writing to stderr, or to a rotated file when cfg.File is set.
func New(cfg config.LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: timestampFormat,
			FullTimestamp:   true,
		})
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
	logger.SetOutput(output(cfg))
	return logger, nil
}

func output(cfg config.LogConfig) io.Writer {
	if cfg.File == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}

// Discard returns a logger that drops everything; used where no logger is configured.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
