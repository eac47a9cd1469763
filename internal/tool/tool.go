package tool

import (
	"context"
	"encoding/json"
	"time"
)

// Tool defines the interface that all tools must implement
type Tool interface {
	// Name returns the unique identifier for this tool
	Name() string

	// Description returns a brief description of what this tool does
	Description() string

	// Parameters returns the JSON schema for the tool's parameters
	Parameters() map[string]any

	// Execute runs the tool with the given parameters. Domain failures are
	// reported through Result; a returned error means the tool could not run
	// at all.
	Execute(ctx context.Context, params json.RawMessage) (*Result, error)
}

// Result is the outcome of one tool execution. Output holds the raw payload
// handed back to the model, always a JSON object.
type Result struct {
	Success bool
	Output  string
	Error   string
	Data    map[string]any
}

type CallResult struct {
	ToolName  string
	CallID    string
	Params    json.RawMessage
	Result    *Result
	StartTime time.Time
	EndTime   time.Time
}

// Duration returns how long the call took
func (c *CallResult) Duration() time.Duration {
	return c.EndTime.Sub(c.StartTime)
}

// JSONResult builds a successful result whose output is payload encoded as JSON
func JSONResult(payload any) *Result {
	data, err := json.Marshal(payload)
	if err != nil {
		return ErrorResult("failed to encode tool output: " + err.Error())
	}
	return &Result{
		Success: true,
		Output:  string(data),
	}
}

// ErrorResult builds a failed result whose output is {"error": msg}
func ErrorResult(msg string) *Result {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return &Result{
		Success: false,
		Output:  string(data),
		Error:   msg,
	}
}
