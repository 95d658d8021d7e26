package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// LogLevel is an enumeration of logger severities.
type LogLevel int

const (
	Critical LogLevel = 50
	Error    LogLevel = 40
	Warning  LogLevel = 30
	Info     LogLevel = 20
	Debug    LogLevel = 10
	NotSet   LogLevel = 0
)

// Logger provides leveled logging with a component prefix and key-value
// context. It writes plain lines via the standard library logger; the
// capture shim wraps it to add trace forwarding.
type Logger struct {
	prefix string
	logger *log.Logger

	mu       sync.Mutex
	logLevel LogLevel
}

// NewLogger creates a logger for a component. Level defaults to Info.
func NewLogger(prefix string, logLevel ...LogLevel) *Logger {
	level := Info
	if len(logLevel) > 0 {
		level = logLevel[0]
	}
	return &Logger{
		prefix:   prefix,
		logger:   log.New(os.Stdout, fmt.Sprintf("[%s] ", prefix), log.LstdFlags),
		logLevel: level,
	}
}

// NewWriterLogger creates a logger that writes to w instead of stdout.
// Used by tests and by the capture shim's diagnostic side channel.
func NewWriterLogger(prefix string, w io.Writer, level LogLevel) *Logger {
	return &Logger{
		prefix:   prefix,
		logger:   log.New(w, fmt.Sprintf("[%s] ", prefix), log.LstdFlags),
		logLevel: level,
	}
}

// SetLogLevel changes the minimum severity that gets written.
func (l *Logger) SetLogLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logLevel = level
}

func (l *Logger) Info(msg string, keyvals ...any)  { l.write(Info, "INFO", msg, keyvals...) }
func (l *Logger) Warn(msg string, keyvals ...any)  { l.write(Warning, "WARN", msg, keyvals...) }
func (l *Logger) Error(msg string, keyvals ...any) { l.write(Error, "ERROR", msg, keyvals...) }
func (l *Logger) Debug(msg string, keyvals ...any) { l.write(Debug, "DEBUG", msg, keyvals...) }

func (l *Logger) write(level LogLevel, tag, msg string, keyvals ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logLevel > level {
		return
	}
	l.logger.Println(formatMessage(tag, msg, keyvals...))
}

func formatMessage(tag, msg string, keyvals ...any) string {
	formatted := fmt.Sprintf("[%s] %s", tag, msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		formatted += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
	}
	return formatted
}
