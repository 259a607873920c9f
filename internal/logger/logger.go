// Package logger provides a small levelled logger with key=value fields and
// optional rotating file output.
package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Fields map[string]any

type Level int

const (
	DEBUG Level = iota
	INFO
	WARNING
	ERROR
)

var levelNames = map[Level]string{
	DEBUG:   "DEBUG",
	INFO:    "INFO",
	WARNING: "WARNING",
	ERROR:   "ERROR",
}

type ctxKey struct{}

// WithTraceID stores a trace id that every log line written with ctx will carry.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// TraceID returns the trace id stored in ctx, if any.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type Logger struct {
	level   Level
	out     *log.Logger
	service string
}

// New writes to stdout and, when logDir is set, to a rotating app.log in it.
func New(logDir, service, level string) (*Logger, error) {
	var w io.Writer = os.Stdout
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "app.log"),
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}
	return NewWriter(w, service, level), nil
}

func NewWriter(w io.Writer, service, level string) *Logger {
	return &Logger{
		level:   ParseLevel(level),
		out:     log.New(w, "", log.LstdFlags),
		service: service,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard, "", "ERROR")
}

// Std exposes the underlying writer for libraries that want a *log.Logger.
func (l *Logger) Std() *log.Logger { return l.out }

func (l *Logger) write(ctx context.Context, level Level, msg string, fields Fields) {
	if level < l.level {
		return
	}

	prefix := "[" + levelNames[level] + "]"
	if l.service != "" {
		prefix += " [" + l.service + "]"
	}

	var parts []string
	if id := TraceID(ctx); id != "" {
		parts = append(parts, "trace_id="+id)
	}
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
		}
	}
	if len(parts) > 0 {
		prefix += " [" + strings.Join(parts, " ") + "]"
	}

	l.out.Print(prefix + " " + msg)
}

func (l *Logger) Debugf(format string, args ...any) { l.write(context.Background(), DEBUG, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Infof(format string, args ...any)  { l.write(context.Background(), INFO, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Warnf(format string, args ...any)  { l.write(context.Background(), WARNING, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Errorf(format string, args ...any) { l.write(context.Background(), ERROR, fmt.Sprintf(format, args...), nil) }

func (l *Logger) Fatalf(format string, args ...any) {
	l.write(context.Background(), ERROR, fmt.Sprintf(format, args...), nil)
	os.Exit(1)
}

// WithFields binds ctx and fields to the returned entry.
func (l *Logger) WithFields(ctx context.Context, fields Fields) *Entry {
	return &Entry{logger: l, ctx: ctx, fields: fields}
}

type Entry struct {
	logger *Logger
	ctx    context.Context
	fields Fields
}

func (e *Entry) Debugf(format string, args ...any) {
	e.logger.write(e.ctx, DEBUG, fmt.Sprintf(format, args...), e.fields)
}

func (e *Entry) Infof(format string, args ...any) {
	e.logger.write(e.ctx, INFO, fmt.Sprintf(format, args...), e.fields)
}

func (e *Entry) Warnf(format string, args ...any) {
	e.logger.write(e.ctx, WARNING, fmt.Sprintf(format, args...), e.fields)
}

func (e *Entry) Errorf(format string, args ...any) {
	e.logger.write(e.ctx, ERROR, fmt.Sprintf(format, args...), e.fields)
}

func ParseLevel(value string) Level {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEBUG":
		return DEBUG
	case "WARNING", "WARN":
		return WARNING
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}
