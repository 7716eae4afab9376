package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/large-farva/tlecheck/internal/config"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

func (l Level) String() string { return levelNames[l] }

// ParseLevel maps a config level name to a Level. Unknown names are info.
func ParseLevel(s string) Level {
	for l, name := range levelNames {
		if strings.EqualFold(s, name) {
			return l
		}
	}
	return LevelInfo
}

// LogFlags are the flags every daemon logger uses.
const LogFlags = log.LstdFlags | log.Lmicroseconds

// Logger is a *log.Logger with a level threshold. Lines that pass the
// threshold also go to an optional sink, which the daemon uses to keep a
// recent-log buffer and mirror log lines to WebSocket clients.
type Logger struct {
	*log.Logger

	mu    sync.RWMutex
	level Level
	sink  func(Level, string)
}

// NewLogger wraps l. A nil l logs to stdout.
func NewLogger(l *log.Logger, level Level) *Logger {
	if l == nil {
		l = log.New(os.Stdout, "", LogFlags)
	}
	return &Logger{Logger: l, level: level}
}

// Discard returns a logger that writes nowhere, for tests.
func Discard() *Logger {
	return NewLogger(log.New(io.Discard, "", 0), LevelError)
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *Logger) setSink(fn func(Level, string)) {
	l.mu.Lock()
	l.sink = fn
	l.mu.Unlock()
}

func (l *Logger) logf(level Level, format string, args ...any) {
	l.mu.RLock()
	threshold, sink := l.level, l.sink
	l.mu.RUnlock()
	if level < threshold {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.Output(3, level.String()+": "+msg)
	if sink != nil {
		sink(level, msg)
	}
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

// OpenLogOutput returns the writer the daemon logs to: stdout, tee'd to a
// size-rotated file when cfg.File is set. The closer must be closed on
// shutdown.
func OpenLogOutput(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	if cfg.File == "" {
		return os.Stdout, nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	return io.MultiWriter(os.Stdout, rotator), rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// logEntry is one line in the recent-log ring served at /api/logs.
type logEntry struct {
	TS      time.Time `json:"ts"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

const logBufSize = 500

// logRing keeps the last logBufSize entries.
type logRing struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *logRing) add(e logEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) >= logBufSize {
		copy(r.entries, r.entries[1:])
		r.entries = r.entries[:len(r.entries)-1]
	}
	r.entries = append(r.entries, e)
}

func (r *logRing) snapshot() []logEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]logEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
