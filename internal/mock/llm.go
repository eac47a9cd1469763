// Package mock provides test doubles for qroute interfaces using function fields.
package mock

import (
	"context"
	"sync"

	"qroute/internal/llm"
)

// Interface compliance check.
var _ llm.Client = (*Client)(nil)

// Client is a test double for llm.Client.
// Set ChatFn before calling Chat.
type Client struct {
	ChatFn     func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
	ProviderFn func() string
	ModelFn    func() string
}

// Chat delegates to ChatFn.
func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return c.ChatFn(ctx, req)
}

// Provider delegates to ProviderFn, defaulting to "mock".
func (c *Client) Provider() string {
	if c.ProviderFn == nil {
		return "mock"
	}
	return c.ProviderFn()
}

// Model delegates to ModelFn, defaulting to "mock-model".
func (c *Client) Model() string {
	if c.ModelFn == nil {
		return "mock-model"
	}
	return c.ModelFn()
}

// Step is one scripted reply of a ScriptedClient.
type Step func(req *llm.ChatRequest) (*llm.ChatResponse, error)

// ScriptedClient answers successive Chat calls with successive steps and
// records every request it receives. Calls beyond the script fail the test
// through Overrun. Safe for concurrent use.
type ScriptedClient struct {
	Steps []Step
	// Overrun is called when Chat is invoked more often than there are steps.
	Overrun func(req *llm.ChatRequest)

	mu       sync.Mutex
	requests []*llm.ChatRequest
}

var _ llm.Client = (*ScriptedClient)(nil)

// Chat records req and replays the next step.
func (s *ScriptedClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	s.mu.Lock()
	n := len(s.requests)
	s.requests = append(s.requests, snapshot(req))
	s.mu.Unlock()

	if n >= len(s.Steps) {
		if s.Overrun != nil {
			s.Overrun(req)
		}
		return nil, context.Canceled
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Steps[n](req)
}

func (s *ScriptedClient) Provider() string { return "mock" }
func (s *ScriptedClient) Model() string    { return "mock-model" }

// Requests returns copies of the requests received so far.
func (s *ScriptedClient) Requests() []*llm.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*llm.ChatRequest(nil), s.requests...)
}

// Calls returns how many times Chat was called.
func (s *ScriptedClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// snapshot copies the request so later appends by the caller don't leak in.
func snapshot(req *llm.ChatRequest) *llm.ChatRequest {
	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	cp.Tools = append([]*llm.ToolDefinition(nil), req.Tools...)
	return &cp
}

// Text is a step answering with plain content.
func Text(content string) Step {
	return func(*llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{
			Message:    llm.Message{Role: llm.RoleAssistant, Content: content},
			StopReason: llm.StopReasonStop,
		}, nil
	}
}

// ToolCalls is a step answering with the given tool calls.
func ToolCalls(calls ...*llm.ToolCall) Step {
	return func(*llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{
			Message:    llm.Message{Role: llm.RoleAssistant, ToolCalls: calls},
			StopReason: llm.StopReasonToolCalls,
		}, nil
	}
}

// Fail is a step returning err.
func Fail(err error) Step {
	return func(*llm.ChatRequest) (*llm.ChatResponse, error) {
		return nil, err
	}
}

// Call builds a function tool call.
func Call(id, name, arguments string) *llm.ToolCall {
	return &llm.ToolCall{
		ID:       id,
		Type:     "function",
		Function: &llm.FunctionCall{Name: name, Arguments: arguments},
	}
}
