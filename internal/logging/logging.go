// Package logging configures the process-wide logrus logger from application
// config: level, destination, and rotation.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/retriever-io/retriever/internal/config"
)

// Init applies cfg to the standard logrus logger. When a log file cannot be
// opened the logger falls back to stderr rather than failing the command.
func Init(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logrus.SetLevel(level)

	output, outErr := buildOutput(cfg)
	logrus.SetOutput(output)
	if cfg.LogFilePath != "" && outErr == nil {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if outErr != nil {
		logrus.WithField("path", cfg.LogFilePath).WithError(outErr).
			Warn("could not open log file, logging to stderr")
	}
	return nil
}

func buildOutput(cfg *config.Config) (io.Writer, error) {
	if cfg.LogFilePath == "" {
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
		return os.Stderr, fmt.Errorf("creating log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   cfg.LogCompress,
		LocalTime:  true,
	}, nil
}
