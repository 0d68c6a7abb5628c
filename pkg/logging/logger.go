/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Logging system for chainforge. Provides structured logging with
timestamped files, multiple output formats and generation-specific helpers for
trees, instantiations and statistics. Retention of old log files is delegated to
the LogManager.
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/kleascm/chainforge/pkg/core"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warn"
	LogLevelError   LogLevel = "error"
	LogLevelFatal   LogLevel = "fatal"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatJSON   LogFormat = "json"
	LogFormatText   LogFormat = "text"
	LogFormatCustom LogFormat = "custom"
)

// FilePrefix starts the name of every chainforge log file
const FilePrefix = "chainforge_"

// LoggerConfig holds the configuration for the logger
// An empty OutputDir logs to the console only
type LoggerConfig struct {
	Level     LogLevel  `json:"level"`
	Format    LogFormat `json:"format"`
	OutputDir string    `json:"output_dir"`
	MaxFiles  int       `json:"max_files"`
	MaxSize   int64     `json:"max_size"` // in bytes
	Timestamp bool      `json:"timestamp"`
	Caller    bool      `json:"caller"`
	Colors    bool      `json:"colors"`
	Compress  bool      `json:"compress"`
}

// Validate checks the LoggerConfig for invalid values.
func (c *LoggerConfig) Validate() error {
	if c.OutputDir != "" && c.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be positive")
	}
	if c.OutputDir != "" && c.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive")
	}
	switch c.Format {
	case LogFormatJSON, LogFormatText, LogFormatCustom:
		// ok
	default:
		return fmt.Errorf("unsupported log format: %s", c.Format)
	}
	if _, err := logrus.ParseLevel(string(c.Level)); err != nil {
		return fmt.Errorf("unsupported log level: %s", c.Level)
	}
	return nil
}

// Logger wraps a logrus logger with file output and retention
type Logger struct {
	config     *LoggerConfig
	logger     *logrus.Logger
	console    io.Writer
	fileHandle *os.File
	filePath   string
	manager    *LogManager
	startTime  time.Time
}

// NewLogger creates a new logger instance writing to console and, when an output
// directory is configured, to a timestamped log file
func NewLogger(config *LoggerConfig, console io.Writer) (*Logger, error) {
	if config == nil {
		config = &LoggerConfig{
			Level:     LogLevelInfo,
			Format:    LogFormatCustom,
			MaxFiles:  10,
			MaxSize:   100 * 1024 * 1024, // 100MB
			Timestamp: true,
			Colors:    true,
		}
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}
	if console == nil {
		console = os.Stderr
	}

	l := &Logger{
		config:    config,
		logger:    logrus.New(),
		console:   console,
		startTime: time.Now(),
	}
	if config.OutputDir != "" {
		l.manager = NewLogManager(config.OutputDir, config.MaxFiles, config.MaxSize, config.Compress)
	}

	if err := l.setup(); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return l, nil
}

// setup configures the logger with the given configuration
func (l *Logger) setup() error {
	level, err := logrus.ParseLevel(string(l.config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.logger.SetLevel(level)
	l.logger.SetReportCaller(l.config.Caller)

	if err := l.setFormatter(); err != nil {
		return err
	}

	l.logger.SetOutput(l.console)
	return l.setupFileOutput()
}

// setFormatter configures the log formatter
func (l *Logger) setFormatter() error {
	callerPrettyfier := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	switch l.config.Format {
	case LogFormatJSON:
		l.logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: callerPrettyfier,
		})

	case LogFormatText:
		l.logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    l.config.Timestamp,
			TimestampFormat:  time.RFC3339,
			ForceColors:      l.config.Colors,
			DisableColors:    !l.config.Colors,
			CallerPrettyfier: callerPrettyfier,
		})

	case LogFormatCustom:
		l.logger.SetFormatter(&CustomFormatter{
			Timestamp: l.config.Timestamp,
			Caller:    l.config.Caller,
			Colors:    l.config.Colors,
		})

	default:
		return fmt.Errorf("unsupported log format: %s", l.config.Format)
	}

	return nil
}

// setupFileOutput opens a fresh timestamped log file
func (l *Logger) setupFileOutput() error {
	if l.config.OutputDir == "" {
		return nil
	}

	if err := os.MkdirAll(l.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	// Generate filename with timestamp
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	path := filepath.Join(l.config.OutputDir, fmt.Sprintf("%s%s.log", FilePrefix, timestamp))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.fileHandle = file
	l.filePath = path
	l.logger.SetOutput(io.MultiWriter(l.console, file))

	l.logger.WithFields(logrus.Fields{
		"start_time": l.startTime.Format(time.RFC3339),
		"log_file":   path,
		"level":      l.config.Level,
		"format":     l.config.Format,
	}).Debug("Chainforge logging system initialized")

	return nil
}

// Rotate starts a new log file once the current one exceeds the size limit
func (l *Logger) Rotate() error {
	if l.fileHandle == nil {
		return nil
	}

	stat, err := l.fileHandle.Stat()
	if err != nil {
		return err
	}
	if stat.Size() < l.config.MaxSize {
		return nil
	}

	l.logger.SetOutput(l.console)
	if err := l.fileHandle.Close(); err != nil {
		return err
	}
	l.fileHandle = nil
	if err := l.manager.RotateLogs(); err != nil {
		return err
	}
	return l.setupFileOutput()
}

// Generation-specific logging methods

// LogTree logs a generated tree
func (l *Logger) LogTree(kind string, tree fmt.Stringer, fields logrus.Fields) {
	entry := l.logger.WithFields(fields).WithFields(logrus.Fields{
		"kind": kind,
		"tree": tree.String(),
	})
	entry.Debug("Tree generated")
}

// LogStats logs generation statistics
func (l *Logger) LogStats(stats *core.GenerationStats, fields logrus.Fields) {
	instantiations := 0
	for _, row := range stats.Instantiations {
		for _, n := range row {
			instantiations += n
		}
	}
	l.logger.WithFields(fields).WithFields(logrus.Fields{
		"trees":          stats.Trees,
		"pairings":       len(stats.Pairings),
		"instantiations": instantiations,
		"uptime":         time.Since(l.startTime),
	}).Info("Statistics update")
}

// Path returns the current log file, or an empty string without file output
func (l *Logger) Path() string {
	return l.filePath
}

// Close closes the log file and applies the retention policy
func (l *Logger) Close() error {
	l.logger.SetOutput(l.console)
	if l.fileHandle != nil {
		if err := l.fileHandle.Close(); err != nil {
			return err
		}
		l.fileHandle = nil
	}

	if l.manager != nil {
		if err := l.manager.CleanupOldLogs(); err != nil {
			return fmt.Errorf("failed to cleanup log files: %w", err)
		}
	}
	return nil
}

// GetLogger returns the underlying logrus logger
func (l *Logger) GetLogger() *logrus.Logger {
	return l.logger
}
