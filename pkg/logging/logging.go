package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

/*
Config describes how the process wide charmbracelet logger is set up. It is
filled from the "logging" section of the config file.
*/
type Config struct {
	Level  string
	Format string
	File   string
	Caller bool
}

var logFile *os.File

/*
Init configures the default logger. When File is set, output goes to both
stderr and the file so a server running under a supervisor keeps a local
trail.
*/
func Init(cfg Config) error {
	var out io.Writer = os.Stderr

	if cfg.File != "" {
		fh, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)

		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}

		logFile = fh
		out = io.MultiWriter(os.Stderr, fh)
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		ReportCaller:    cfg.Caller,
		TimeFormat:      time.DateTime,
		Formatter:       ParseFormat(cfg.Format),
	})

	if cfg.Level != "" {
		level, err := log.ParseLevel(cfg.Level)

		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}

		logger.SetLevel(level)
	}

	log.SetDefault(logger)
	log.Debug("logging initialized", "level", cfg.Level, "format", cfg.Format, "file", cfg.File)

	return nil
}

// ParseFormat maps a config string onto a charmbracelet formatter.
func ParseFormat(format string) log.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// Close closes the log file.
func Close() {
	if logFile != nil {
		log.Debug("closing log file")
		logFile.Close()
		logFile = nil
	}
}
