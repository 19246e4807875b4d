package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelStrings = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// ParseLevel maps a configuration string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

const maxLogSize = 50 * 1024 * 1024

// Logger writes leveled log messages to stdout and, optionally, a rotating file.
type Logger struct {
	logger   *log.Logger
	file     *os.File
	level    Level
	filename string
	mutex    sync.Mutex
}

var (
	instance = &Logger{logger: log.New(os.Stdout, "", log.LstdFlags), level: LevelInfo}
	mu       sync.Mutex
)

// Setup configures the global logger. An empty path keeps stdout-only output.
func Setup(path string, level Level) error {
	mu.Lock()
	defer mu.Unlock()

	l := &Logger{level: level}
	if path == "" {
		l.logger = log.New(os.Stdout, "", log.LstdFlags)
		instance = l
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %v", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %v", err)
	}

	l.logger = log.New(io.MultiWriter(file, os.Stdout), "", log.LstdFlags)
	l.file = file
	l.filename = path
	instance = l
	return nil
}

// Close closes the log file if one is open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if instance.file != nil {
		return instance.file.Close()
	}
	return nil
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if err := l.rotateIfNeeded(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to rotate log file: %v\n", err)
	}

	l.logger.Printf("[%s] %s", levelStrings[level], fmt.Sprintf(format, args...))
}

func (l *Logger) rotateIfNeeded() error {
	if l.file == nil {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil || info.Size() < maxLogSize {
		return err
	}

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %v", err)
	}
	rotated := fmt.Sprintf("%s.%s", l.filename, time.Now().Format("20060102-150405"))
	if err := os.Rename(l.filename, rotated); err != nil {
		return fmt.Errorf("failed to rename log file: %v", err)
	}
	file, err := os.OpenFile(l.filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open new log file: %v", err)
	}
	l.logger.SetOutput(io.MultiWriter(file, os.Stdout))
	l.file = file
	return nil
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) { instance.log(LevelDebug, format, args...) }

// Infof logs an info message.
func Infof(format string, args ...interface{}) { instance.log(LevelInfo, format, args...) }

// Warnf logs a warning message.
func Warnf(format string, args ...interface{}) { instance.log(LevelWarn, format, args...) }

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) { instance.log(LevelError, format, args...) }
