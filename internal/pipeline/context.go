package pipeline

import (
	"context"
	"time"

	"qroute/internal/logger"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ExecutionContextKey is the context key for the per-request ExecutionContext
const ExecutionContextKey ContextKey = "execution_context"

// ExecutionContext tracks a single pipeline run and provides logging utilities
type ExecutionContext struct {
	RequestID     string
	Logger        *logger.Logger
	StartTime     time.Time
	ToolCallCount int
}

// NewExecutionContext creates a new execution context with the given logger
func NewExecutionContext(requestID string, log *logger.Logger) *ExecutionContext {
	if log == nil {
		log = logger.Nop()
	}
	return &ExecutionContext{
		RequestID: requestID,
		Logger:    log,
		StartTime: time.Now(),
	}
}

// LogToolCall logs a tool call with its parameters
func (ec *ExecutionContext) LogToolCall(toolName, params string) {
	ec.ToolCallCount++
	ec.Logger.ToolCall(toolName, params)
}

// LogToolResult logs a tool execution result
func (ec *ExecutionContext) LogToolResult(toolName string, success bool, output string, duration time.Duration) {
	ec.Logger.ToolResult(toolName, success, output, duration)
}

// Elapsed returns the time since the run started
func (ec *ExecutionContext) Elapsed() time.Duration {
	return time.Since(ec.StartTime)
}

// WithExecutionContext stores ec in ctx
func WithExecutionContext(ctx context.Context, ec *ExecutionContext) context.Context {
	return context.WithValue(ctx, ExecutionContextKey, ec)
}

// ExecutionContextFrom returns the ExecutionContext stored in ctx, or a fresh
// one with a discarding logger when the stage runs outside Process
func ExecutionContextFrom(ctx context.Context) *ExecutionContext {
	if ec, ok := ctx.Value(ExecutionContextKey).(*ExecutionContext); ok && ec != nil {
		return ec
	}
	return NewExecutionContext("", nil)
}
