// Package logging builds the application logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"outreach_sequence_generator/config"
)

// ParseLevel maps "debug", "info", "warn" and "error"; anything else is info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// New creates a logger writing to stderr and, when cfg.File is set, to a
// rotating log file. The returned closer flushes the file.
func New(cfg config.LogConfig) (*log.Logger, io.Closer, error) {
	var writer io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, err
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stderr, fileWriter)
		closer = fileWriter
	}
	return NewWithWriter(writer, cfg), closer, nil
}

// NewWithWriter creates a logger on an arbitrary writer.
func NewWithWriter(w io.Writer, cfg config.LogConfig) *log.Logger {
	level := ParseLevel(cfg.Level)
	logger := log.NewWithOptions(w, log.Options{
		ReportCaller:    level == log.DebugLevel,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "outreach",
	})
	if strings.ToLower(cfg.Format) == "json" {
		logger.SetFormatter(log.JSONFormatter)
	}
	return logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
