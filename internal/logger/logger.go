package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level represents the log level
type Level int

const (
	LevelDebug Level = iota // Debug information (only shown with --verbose)
	LevelInfo               // Important steps, tool calls, route decisions
	LevelError              // Error messages
)

// ParseLevel maps a config string onto a Level. Unknown values mean info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger provides structured logging for the query pipeline
type Logger struct {
	writer    io.Writer
	level     Level
	colorMode bool
	jsonMode  bool
	fields    map[string]any
	zl        zerolog.Logger
}

// NewLogger creates a new Logger writing human-readable console output
func NewLogger(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stdout
	}
	l := &Logger{
		writer:    w,
		level:     level,
		colorMode: true,
	}
	l.rebuild()
	return l
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	l := NewLogger(io.Discard, LevelError)
	l.zl = zerolog.Nop()
	return l
}

// SetColorMode enables or disables colored console output
func (l *Logger) SetColorMode(enabled bool) {
	l.colorMode = enabled
	l.rebuild()
}

// SetJSON switches between JSON lines and console output
func (l *Logger) SetJSON(enabled bool) {
	l.jsonMode = enabled
	l.rebuild()
}

// With returns a child logger that adds key=value to every entry
func (l *Logger) With(key string, value any) *Logger {
	child := *l
	child.fields = make(map[string]any, len(l.fields)+1)
	for k, v := range l.fields {
		child.fields[k] = v
	}
	child.fields[key] = value
	child.zl = l.zl.With().Interface(key, value).Logger()
	return &child
}

func (l *Logger) rebuild() {
	var out io.Writer = l.writer
	if !l.jsonMode {
		out = zerolog.ConsoleWriter{
			Out:        l.writer,
			NoColor:    !l.colorMode,
			TimeFormat: "15:04:05",
		}
	}

	ctx := zerolog.New(out).Level(l.level.zerolog()).With().Timestamp()
	for k, v := range l.fields {
		ctx = ctx.Interface(k, v)
	}
	l.zl = ctx.Logger()
}

// Debug logs debug information (only shown in verbose mode)
func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

// Info logs general information
func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

// Error logs error messages
func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

// RouteDecision logs the router's classification of a query
func (l *Logger) RouteDecision(route string, raw string) {
	l.zl.Info().
		Str("route", route).
		Str("raw", truncate(raw, 80)).
		Msg("route decided")
}

// ToolCall logs a tool call with its parameters
func (l *Logger) ToolCall(toolName string, params string) {
	l.zl.Info().
		Str("tool", toolName).
		RawJSON("params", compactJSON(params)).
		Msg("tool call")
}

// ToolResult logs a tool execution result
func (l *Logger) ToolResult(toolName string, success bool, output string, duration time.Duration) {
	event := l.zl.Info()
	if !success {
		event = l.zl.Warn()
	}
	event.
		Str("tool", toolName).
		Bool("success", success).
		Dur("duration", duration).
		Str("output", preview(output)).
		Msg("tool result")
}

// PipelineStart logs the beginning of a pipeline run
func (l *Logger) PipelineStart(query string) {
	l.zl.Info().Str("query", query).Msg("pipeline started")
}

// PipelineEnd logs the completion of a pipeline run with statistics
func (l *Logger) PipelineEnd(route string, duration time.Duration, toolCallCount int) {
	l.zl.Info().
		Str("route", route).
		Dur("duration", duration.Round(time.Millisecond)).
		Int("tool_calls", toolCallCount).
		Msg("pipeline completed")
}

// preview limits tool output to 2 lines and 500 characters
func preview(output string) string {
	const maxLines = 2
	const maxLength = 500

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	display := output
	truncatedLines := false

	if len(lines) > maxLines {
		display = strings.Join(lines[:maxLines], "\n")
		truncatedLines = true
	}

	if r := []rune(display); len(r) > maxLength {
		display = string(r[:maxLength]) + "..."
	} else if truncatedLines {
		display += "\n..."
	}

	return display
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

// compactJSON returns params as compact JSON, quoting it as a string when it
// is not valid JSON so the log line stays well-formed
func compactJSON(params string) []byte {
	trimmed := strings.TrimSpace(params)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(trimmed)); err == nil {
			return buf.Bytes()
		}
	}
	quoted, _ := json.Marshal(params)
	return quoted
}
