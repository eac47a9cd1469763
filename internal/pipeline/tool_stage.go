package pipeline

import (
	"context"
	"errors"
	"fmt"

	"qroute/internal/llm"
	"qroute/internal/router"
	"qroute/internal/tool"
	"qroute/internal/tool/builtin"
)

// State is a step of the tool stage
type State string

const (
	StateInit          State = "INIT"
	StateFirstCall     State = "FIRST_CALL"
	StateToolInvoked   State = "TOOL_INVOKED"
	StateNoToolInvoked State = "NO_TOOL_INVOKED"
	StateToolExecuted  State = "TOOL_EXECUTED"
	StateFinalCall     State = "FINAL_CALL"
	StateDone          State = "DONE"
	StateFailed        State = "FAILED"
)

// DefaultMaxTokens bounds both tool-stage completions
const DefaultMaxTokens = 4096

var errNoToolForRoute = errors.New("route has no tool")

// StageRun records one pass through the tool stage
type StageRun struct {
	Route        router.Route
	Response     string
	States       []State
	Conversation *Conversation
	// ToolCall is set once the tool was dispatched
	ToolCall *tool.CallResult
	// Err keeps the cause when the run ended in StateFailed
	Err error
}

// Final returns the state the run ended in
func (r *StageRun) Final() State {
	if len(r.States) == 0 {
		return StateInit
	}
	return r.States[len(r.States)-1]
}

func (r *StageRun) enter(s State) {
	r.States = append(r.States, s)
}

func (r *StageRun) fail(err error) *StageRun {
	r.Err = err
	r.Response = apology(err)
	r.enter(StateFailed)
	return r
}

// ToolStage answers a query with exactly one forced tool call followed by
// a summarizing completion
type ToolStage struct {
	client    llm.Client
	model     string
	registry  *tool.Registry
	executor  *tool.Executor
	maxTokens int
}

// ToolStageOption configures a ToolStage
type ToolStageOption func(*ToolStage)

// WithToolModel selects the tool-use model; empty uses the client default
func WithToolModel(model string) ToolStageOption {
	return func(s *ToolStage) {
		s.model = model
	}
}

// WithMaxTokens overrides DefaultMaxTokens
func WithMaxTokens(n int) ToolStageOption {
	return func(s *ToolStage) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

func NewToolStage(client llm.Client, registry *tool.Registry, executor *tool.Executor, opts ...ToolStageOption) *ToolStage {
	if executor == nil {
		executor = tool.NewExecutor(registry)
	}
	s := &ToolStage{
		client:    client,
		registry:  registry,
		executor:  executor,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ToolFor returns the name of the tool that serves route
func ToolFor(route router.Route) (string, error) {
	switch route {
	case router.RouteCalculate:
		return builtin.CalculatorName, nil
	case router.RouteSearch:
		return builtin.SearchName, nil
	default:
		return "", fmt.Errorf("%w: %s", errNoToolForRoute, route)
	}
}

// Run drives the stage state machine. It never returns an error and never
// panics: any failure, including a panicking client or tool, ends in
// StateFailed with an apologetic Response and the cause in Err.
func (s *ToolStage) Run(ctx context.Context, query string, route router.Route) (run *StageRun) {
	ec := ExecutionContextFrom(ctx)
	run = &StageRun{Route: route, Conversation: NewConversation()}
	defer func() {
		if v := recover(); v != nil {
			run.fail(fmt.Errorf("tool stage panicked: %v", v))
		}
	}()

	// INIT
	run.enter(StateInit)
	name, err := ToolFor(route)
	if err != nil {
		return run.fail(err)
	}
	def, err := s.registry.Definition(name)
	if err != nil {
		return run.fail(err)
	}

	conv := run.Conversation
	conv.Append(llm.Message{Role: llm.RoleSystem, Content: toolSystemPrompt})
	conv.Append(llm.Message{Role: llm.RoleUser, Content: query})

	// FIRST_CALL
	run.enter(StateFirstCall)
	ec.Logger.Debug("Forcing tool %s", name)
	resp, err := s.client.Chat(ctx, &llm.ChatRequest{
		Model:      s.model,
		Messages:   conv.Messages(),
		Tools:      []*llm.ToolDefinition{def},
		ToolChoice: name,
		MaxTokens:  s.maxTokens,
	})
	if err == nil && resp == nil {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		return run.fail(fmt.Errorf("tool-use completion failed: %w", err))
	}

	if !resp.Message.HasToolCalls() {
		// The model ignored the forced choice; its text is the answer
		conv.Append(resp.Message)
		run.Response = resp.Message.Content
		run.enter(StateNoToolInvoked)
		return run
	}

	// TOOL_INVOKED
	assistant := resp.Message
	if len(assistant.ToolCalls) > 1 {
		ec.Logger.Debug("Dropping %d extra tool call(s)", len(assistant.ToolCalls)-1)
		assistant.ToolCalls = assistant.ToolCalls[:1]
	}
	assistant.Role = llm.RoleAssistant
	first := assistant.ToolCalls[0]
	if first == nil || first.Function == nil {
		return run.fail(errors.New("model returned a malformed tool call"))
	}
	// The repaired arguments are what the final call sees
	tc := &llm.ToolCall{
		ID:   first.ID,
		Type: first.Type,
		Function: &llm.FunctionCall{
			Name:      first.Function.Name,
			Arguments: first.Function.Arguments,
		},
	}
	if args, err := tool.NormalizeArguments(tc.Function.Arguments); err == nil {
		tc.Function.Arguments = string(args)
	}
	assistant.ToolCalls = []*llm.ToolCall{tc}
	conv.Append(assistant)
	run.enter(StateToolInvoked)

	if tc.Function.Name != name {
		return run.fail(fmt.Errorf("model called %q instead of %q", tc.Function.Name, name))
	}

	// TOOL_EXECUTED
	ec.LogToolCall(tc.Function.Name, tc.Function.Arguments)
	call, err := s.executor.Execute(ctx, tc)
	if err != nil {
		return run.fail(err)
	}
	run.ToolCall = call
	ec.LogToolResult(call.ToolName, call.Result.Success, call.Result.Output, call.Duration())

	conv.Append(llm.Message{
		Role:       llm.RoleTool,
		Content:    call.Result.Output,
		ToolCallID: tc.ID,
		Name:       tc.Function.Name,
		Timestamp:  call.EndTime,
	})
	run.enter(StateToolExecuted)

	conv.Append(llm.Message{Role: llm.RoleUser, Content: summaryInstruction})

	// FINAL_CALL
	run.enter(StateFinalCall)
	final, err := s.client.Chat(ctx, &llm.ChatRequest{
		Model:     s.model,
		Messages:  conv.Messages(),
		MaxTokens: s.maxTokens,
	})
	if err == nil && final == nil {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		return run.fail(fmt.Errorf("final completion failed: %w", err))
	}

	final.Message.Role = llm.RoleAssistant
	conv.Append(final.Message)
	run.Response = final.Message.Content
	run.enter(StateDone)
	return run
}
