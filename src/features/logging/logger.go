package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/contre95/song-classifier/src/features/config"
)

// SetupLogger builds the process logger from the configured level and format.
// verbose forces debug level regardless of the config file.
func SetupLogger(cfg *config.Manager, verbose bool) *slog.Logger {
	return newLogger(os.Stderr, cfg.Get().Logger, verbose)
}

func newLogger(w io.Writer, settings config.Logger, verbose bool) *slog.Logger {
	var formatter log.Formatter
	switch settings.Format {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		formatter = log.TextFormatter
	}

	level := log.InfoLevel
	switch settings.Level {
	case "debug":
		level = log.DebugLevel
	case "warn":
		level = log.WarnLevel
	case "error":
		level = log.ErrorLevel
	}
	if verbose {
		level = log.DebugLevel
	}

	handler := log.NewWithOptions(w, log.Options{
		ReportCaller:    verbose,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "song-classifier",
		Formatter:       formatter,
		Level:           level,
	})

	logger := slog.New(handler)
	logger.Debug("Logger initialized", "time", time.Now().Format(time.RFC3339))
	return logger
}
