// Package logx provides leveled component logging with a shared in-memory buffer,
// optional file output and domain-filtered debug logging.
package logx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"

// ctxKey is the context key type for the component carried by Debug.
type ctxKey struct{}

// Logger writes lines tagged with a component name (planner, coder, ...).
type Logger struct {
	component string
}

// LogEntry is one buffered log line.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Component string `json:"component"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Domain    string `json:"domain,omitempty"`
}

// InMemoryLogBuffer keeps the most recent entries for the status server.
type InMemoryLogBuffer struct {
	entries []LogEntry
	mutex   sync.RWMutex
	maxSize int
}

var (
	debugEnabled bool
	debugDomains map[string]bool
	debugMutex   sync.RWMutex

	logWriter     io.Writer
	fileWriter    io.WriteCloser
	logWriterLock sync.Mutex

	logBuffer = &InMemoryLogBuffer{maxSize: 1000}

	subscribers   = map[int]chan LogEntry{}
	nextSubID     int
	subscribersMu sync.Mutex
)

func init() { //nolint:gochecknoinits // env-driven debug switches
	initDebugFromEnv()
}

func initDebugFromEnv() {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if v := os.Getenv("DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		debugEnabled = true
	}
	if domains := os.Getenv("DEBUG_DOMAINS"); domains != "" {
		debugDomains = make(map[string]bool)
		for _, d := range strings.Split(domains, ",") {
			debugDomains[strings.TrimSpace(d)] = true
		}
	}
}

// NewLogger returns a logger for the given component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// SetDebug toggles debug output and restricts it to the given domains (none = all).
func SetDebug(enabled bool, domains ...string) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	debugEnabled = enabled
	if len(domains) == 0 {
		debugDomains = nil
		return
	}
	debugDomains = make(map[string]bool, len(domains))
	for _, d := range domains {
		debugDomains[strings.TrimSpace(d)] = true
	}
}

// IsDebugEnabled reports whether debug output is on.
func IsDebugEnabled() bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()
	return debugEnabled
}

// IsDebugEnabledForDomain reports whether debug output is on for domain.
func IsDebugEnabledForDomain(domain string) bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()

	if !debugEnabled {
		return false
	}
	if debugDomains == nil {
		return true
	}
	return debugDomains[domain]
}

// SetOutput redirects console output. Passing nil restores stderr.
func SetOutput(w io.Writer) {
	logWriterLock.Lock()
	defer logWriterLock.Unlock()
	logWriter = w
}

// EnableFileLogging mirrors every line into path (appending). The returned
// function closes the file and detaches it.
func EnableFileLogging(path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}

	logWriterLock.Lock()
	if fileWriter != nil {
		_ = fileWriter.Close()
	}
	fileWriter = f
	logWriterLock.Unlock()

	return func() error {
		logWriterLock.Lock()
		defer logWriterLock.Unlock()
		if fileWriter != f {
			return nil
		}
		fileWriter = nil
		return f.Close()
	}, nil
}

// Subscribe returns a channel receiving every new entry and a cancel function.
// Slow subscribers drop entries rather than block logging.
func Subscribe(buffer int) (<-chan LogEntry, func()) {
	ch := make(chan LogEntry, buffer)

	subscribersMu.Lock()
	id := nextSubID
	nextSubID++
	subscribers[id] = ch
	subscribersMu.Unlock()

	return ch, func() {
		subscribersMu.Lock()
		defer subscribersMu.Unlock()
		if _, ok := subscribers[id]; ok {
			delete(subscribers, id)
			close(ch)
		}
	}
}

func publish(entry *LogEntry) {
	logBuffer.Add(entry)

	subscribersMu.Lock()
	defer subscribersMu.Unlock()
	for _, ch := range subscribers {
		select {
		case ch <- *entry:
		default:
		}
	}
}

func writeLine(line string) {
	logWriterLock.Lock()
	defer logWriterLock.Unlock()

	w := logWriter
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintln(w, line)
	if fileWriter != nil {
		fmt.Fprintln(fileWriter, line)
	}
}

// Add appends an entry, evicting the oldest beyond maxSize.
func (b *InMemoryLogBuffer) Add(entry *LogEntry) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.entries = append(b.entries, *entry)
	if len(b.entries) > b.maxSize {
		b.entries = b.entries[len(b.entries)-b.maxSize:]
	}
}

// Entries returns a copy of the buffered entries, optionally filtered by
// component and start time.
func (b *InMemoryLogBuffer) Entries(component string, since time.Time) []LogEntry {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	out := make([]LogEntry, 0, len(b.entries))
	for i := range b.entries {
		e := &b.entries[i]
		if component != "" && !strings.EqualFold(e.Component, component) {
			continue
		}
		if !since.IsZero() {
			ts, err := time.Parse(timestampFormat, e.Timestamp)
			if err != nil || ts.Before(since) {
				continue
			}
		}
		out = append(out, *e)
	}
	return out
}

// RecentEntries returns buffered entries for the status server.
func RecentEntries(component string, since time.Time) []LogEntry {
	return logBuffer.Entries(component, since)
}

func emit(component string, level Level, domain, message string) {
	ts := time.Now().UTC().Format(timestampFormat)
	writeLine(fmt.Sprintf("[%s] [%s] %s: %s", ts, component, level, message))
	publish(&LogEntry{
		Timestamp: ts,
		Component: component,
		Level:     string(level),
		Message:   message,
		Domain:    domain,
	})
}

func (l *Logger) log(level Level, format string, args ...any) {
	emit(l.component, level, "", fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabled() {
		return
	}
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// WithComponent derives a logger for another component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{component: component}
}

// WithComponent stores the component used by Debug in ctx.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, ctxKey{}, component)
}

// Debug logs a domain-filtered debug line. The component is taken from ctx.
//
//	DEBUG=1                        # all domains
//	DEBUG=1 DEBUG_DOMAINS=coder    # only the coder domain
func Debug(ctx context.Context, domain, format string, args ...any) {
	if !IsDebugEnabledForDomain(domain) {
		return
	}
	component := "unknown"
	if ctx != nil {
		if c, ok := ctx.Value(ctxKey{}).(string); ok {
			component = c
		}
	}
	msg := fmt.Sprintf(format, args...)
	emit(component, LevelDebug, domain, fmt.Sprintf("[%s] %s", domain, msg))
}

var defaultLogger = NewLogger("system")

func Infof(format string, args ...any) {
	defaultLogger.Info(format, args...)
}

func Warnf(format string, args ...any) {
	defaultLogger.Warn(format, args...)
}

// Errorf logs and returns the formatted error.
func Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	defaultLogger.Error("%s", err.Error())
	return err
}

// Wrap logs msg + ": " + err and returns the wrapped error. Nil stays nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrapped.Error())
	return wrapped
}
