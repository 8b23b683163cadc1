// Package logger provides leveled logging for the relay CLI with optional
// file output rotated by lumberjack.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "INFO"
}

// ParseLevel converts a level name to a Level. Unknown names give INFO.
func ParseLevel(level string) Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// FileConfig configures rotation of the log file.
type FileConfig struct {
	Path       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// Logger writes leveled messages. It is safe for concurrent use.
type Logger struct {
	mu      sync.RWMutex
	level   Level
	loggers map[Level]*log.Logger
	closer  io.Closer
}

// New returns a logger writing to w at the given level.
func New(w io.Writer, level Level) *Logger {
	return newLogger(w, level, nil)
}

// NewWithFile returns a logger writing to w and to a rotated file. The
// file's directory is created if needed. Call Close to release the file.
func NewWithFile(w io.Writer, level Level, cfg FileConfig) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	return newLogger(io.MultiWriter(w, file), level, file), nil
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return New(io.Discard, ERROR+1)
}

func newLogger(w io.Writer, level Level, closer io.Closer) *Logger {
	flags := log.LstdFlags
	l := &Logger{level: level, loggers: make(map[Level]*log.Logger, len(levelNames)), closer: closer}
	for lvl, name := range levelNames {
		l.loggers[lvl] = log.New(w, "["+name+"] ", flags)
	}
	return l
}

// SetLevel changes the minimum level written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Level returns the minimum level written.
func (l *Logger) Level() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) logf(level Level, format string, args ...any) {
	if level < l.Level() {
		return
	}
	_ = l.loggers[level].Output(3, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(DEBUG, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(INFO, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(WARN, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(ERROR, format, args...) }
