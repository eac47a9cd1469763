package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is reported when a backend returns neither a response
// nor an error
var ErrEmptyResponse = errors.New("empty response from model")

// Client is a non-streaming chat completion backend. Implementations must be
// safe for concurrent use.
type Client interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Provider() string
	Model() string
}

type ChatRequest struct {
	// Model overrides the client's default model when set.
	Model    string
	Messages []Message
	Tools    []*ToolDefinition
	// ToolChoice forces the completion to call the named tool. Empty means
	// the model is free to answer without tools.
	ToolChoice  string
	Temperature float32
	MaxTokens   int
}

type ChatResponse struct {
	Message    Message
	StopReason StopReason
	Usage      Usage
}

type ToolDefinition struct {
	Type     string
	Function *FunctionDef
}

type FunctionDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}
