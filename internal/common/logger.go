package common

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LogLevel represents logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return "info"
	}
}

// ToSlogLevel converts LogLevel to slog.Level
func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel maps a config string to a LogLevel; ok is false for unknown values.
func ParseLogLevel(s string) (LogLevel, bool) {
	switch s {
	case "error":
		return LogLevelError, true
	case "warn", "warning":
		return LogLevelWarn, true
	case "info", "":
		return LogLevelInfo, true
	case "debug":
		return LogLevelDebug, true
	default:
		return LogLevelInfo, false
	}
}

// Logger wraps slog.Logger with the context helpers used across apismoke.
type Logger struct {
	*slog.Logger
	level  LogLevel
	masker *Masker
}

// logOutput is where loggers created without an explicit writer write.
// The scenario report owns stdout, so logs go to stderr.
var logOutput io.Writer = os.Stderr

// NewLogger creates a new structured text logger with the specified level
func NewLogger(level LogLevel) *Logger {
	return NewLoggerWithWriter(logOutput, level)
}

// NewLoggerWithWriter creates a text logger writing to w.
func NewLoggerWithWriter(w io.Writer, level LogLevel) *Logger {
	masker := NewMasker()
	opts := &slog.HandlerOptions{Level: level.ToSlogLevel()}
	h := &maskingHandler{next: slog.NewTextHandler(w, opts), masker: masker}
	return &Logger{Logger: slog.New(h), level: level, masker: masker}
}

// NewJSONLogger creates a structured logger with JSON output
func NewJSONLogger(level LogLevel) *Logger {
	return NewJSONLoggerWithWriter(logOutput, level)
}

// NewJSONLoggerWithWriter creates a JSON logger writing to w.
func NewJSONLoggerWithWriter(w io.Writer, level LogLevel) *Logger {
	masker := NewMasker()
	opts := &slog.HandlerOptions{Level: level.ToSlogLevel()}
	h := &maskingHandler{next: slog.NewJSONHandler(w, opts), masker: masker}
	return &Logger{Logger: slog.New(h), level: level, masker: masker}
}

// NewColorLogger creates a logger backed by ColorHandler.
func NewColorLogger(level LogLevel) *Logger {
	return NewColorLoggerWithWriter(logOutput, level)
}

// NewColorLoggerWithWriter creates a colour logger writing to w.
func NewColorLoggerWithWriter(w io.Writer, level LogLevel) *Logger {
	h := NewColorHandler(w, &slog.HandlerOptions{Level: level.ToSlogLevel()})
	return &Logger{Logger: slog.New(h), level: level, masker: h.masker}
}

// Level returns the current log level
func (l *Logger) Level() LogLevel {
	return l.level
}

// EnableMasking toggles masking of sensitive attribute values for this logger.
func (l *Logger) EnableMasking(enabled bool) {
	if l.masker != nil {
		l.masker.SetEnabled(enabled)
	}
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level, masker: l.masker}
}

// WithComponent returns a logger with component context
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithRun returns a logger with scenario run context
func (l *Logger) WithRun(runID string) *Logger {
	return l.with("run_id", runID)
}

// WithStep returns a logger with step context
func (l *Logger) WithStep(step string) *Logger {
	return l.with("step", step)
}

// WithStore returns a logger with store context
func (l *Logger) WithStore(storeType string) *Logger {
	return l.with("store", storeType)
}

// WithRequest returns a logger with HTTP request context
func (l *Logger) WithRequest(method, url string) *Logger {
	return l.with("method", method, "url", url)
}

// maskingHandler masks sensitive attribute values before delegating to next.
type maskingHandler struct {
	next   slog.Handler
	masker *Masker
}

func (h *maskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *maskingHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.masker.IsEnabled() {
		return h.next.Handle(ctx, r)
	}
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.masker.MaskAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *maskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.masker.MaskAttr(a)
	}
	return &maskingHandler{next: h.next.WithAttrs(masked), masker: h.masker}
}

func (h *maskingHandler) WithGroup(name string) slog.Handler {
	return &maskingHandler{next: h.next.WithGroup(name), masker: h.masker}
}

// Global default logger instance
var defaultLogger = NewLogger(LogLevelInfo)

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *Logger) {
	defaultLogger = logger
}

// GetLogger returns the default logger
func GetLogger() *Logger {
	return defaultLogger
}
