package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/moodlit/internal/constants"
)

var (
	// Logger is the global logger instance
	Logger *log.Logger

	file *lumberjack.Logger
)

// Config holds logger configuration
type Config struct {
	Debug     bool
	ConfigDir string
	// Stderr mirrors output to stderr without enabling debug (serve)
	Stderr bool
	// Level overrides the level implied by Debug and Stderr
	Level string
	// Format is text, json or logfmt; empty means text
	Format string
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	level, err := resolveLevel(cfg)
	if err != nil {
		return err
	}
	formatter, err := ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	logDir := filepath.Join(cfg.ConfigDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	Close()
	file = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, constants.AppName+".log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	// The TUI owns the terminal, so stderr is only added on request
	var writer io.Writer = file
	if cfg.Debug || cfg.Stderr {
		writer = io.MultiWriter(os.Stderr, file)
	}

	Logger = log.NewWithOptions(writer, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          constants.AppName,
		Formatter:       formatter,
	})
	return nil
}

func resolveLevel(cfg Config) (log.Level, error) {
	if cfg.Level != "" {
		level, err := log.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return 0, fmt.Errorf("invalid log level %q", cfg.Level)
		}
		return level, nil
	}
	switch {
	case cfg.Debug:
		return log.DebugLevel, nil
	case cfg.Stderr:
		return log.InfoLevel, nil
	default:
		return log.WarnLevel, nil
	}
}

// ParseFormat maps a --log-format value to a formatter.
func ParseFormat(s string) (log.Formatter, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	}
	return log.TextFormatter, fmt.Errorf("invalid log format %q (want text, json or logfmt)", s)
}

// FilePath returns the rotating log file, or "" before Init.
func FilePath() string {
	if file == nil {
		return ""
	}
	return file.Filename
}

// Close flushes and closes the log file.
func Close() {
	if file != nil {
		_ = file.Close()
	}
}

// With returns a child logger carrying keyvals on every entry. Before Init it
// discards everything.
func With(keyvals ...interface{}) *log.Logger {
	if Logger == nil {
		return log.New(io.Discard)
	}
	return Logger.With(keyvals...)
}

func logAt(level log.Level, msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Log(level, msg, keyvals...)
	}
}

func Debug(msg string, keyvals ...interface{}) { logAt(log.DebugLevel, msg, keyvals...) }

func Info(msg string, keyvals ...interface{}) { logAt(log.InfoLevel, msg, keyvals...) }

func Warn(msg string, keyvals ...interface{}) { logAt(log.WarnLevel, msg, keyvals...) }

func Error(msg string, keyvals ...interface{}) { logAt(log.ErrorLevel, msg, keyvals...) }

// Fatal logs at error level and exits
func Fatal(msg string, keyvals ...interface{}) {
	logAt(log.ErrorLevel, msg, keyvals...)
	Close()
	os.Exit(1)
}
