package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"qroute/internal/hook"
	"qroute/internal/llm"

	"github.com/kaptinlin/jsonrepair"
	"github.com/xeipuuv/gojsonschema"
)

// EmptyOutputPlaceholder is returned when a tool produces no output.
// This ensures LLM APIs (which require non-empty content) don't fail with 400 errors.
const EmptyOutputPlaceholder = `{"result":"(Tool executed successfully with no output)"}`

// Executor dispatches model-produced tool calls to registered tools
type Executor struct {
	registry    *Registry
	hookManager *hook.Manager
}

func NewExecutor(registry *Registry) *Executor {
	return &Executor{
		registry: registry,
	}
}

// SetHookManager sets the hook manager for tool execution hooks
func (e *Executor) SetHookManager(manager *hook.Manager) {
	e.hookManager = manager
}

// Execute runs a single tool call.
//
// Problems the model can recover from (unknown tool, arguments violating the
// schema, a denied hook, a tool-reported failure) come back as a failed
// Result inside the CallResult. An error is returned only when the call
// cannot be carried out at all: arguments that are not JSON even after
// repair, or a tool infrastructure failure.
func (e *Executor) Execute(ctx context.Context, tc *llm.ToolCall) (*CallResult, error) {
	startTime := time.Now()

	if tc == nil || tc.Function == nil {
		return nil, fmt.Errorf("malformed tool call")
	}

	call := &CallResult{
		ToolName:  tc.Function.Name,
		CallID:    tc.ID,
		StartTime: startTime,
	}
	finish := func(result *Result) (*CallResult, error) {
		call.Result = result
		call.EndTime = time.Now()
		return call, nil
	}

	t, err := e.registry.Get(tc.Function.Name)
	if err != nil {
		return finish(ErrorResult(err.Error()))
	}

	params, err := NormalizeArguments(tc.Function.Arguments)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", tc.Function.Name, err)
	}
	call.Params = params

	if err := ValidateArguments(params, t.Parameters()); err != nil {
		return finish(ErrorResult(err.Error()))
	}

	if e.hookManager.HasHandlers(hook.BeforeToolExecution) {
		hookData := hook.NewHookData(hook.BeforeToolExecution, tc.Function.Name).
			Set(hook.KeyParams, string(params))
		if id := RequestIDFromContext(ctx); id != "" {
			hookData.Set(hook.KeyRequestID, id)
		}

		feedback, err := e.hookManager.Trigger(ctx, hookData)
		if err != nil {
			return finish(ErrorResult(fmt.Sprintf("hook error: %v", err)))
		}

		if !feedback.Allow {
			return finish(ErrorResult(fmt.Sprintf("tool execution was denied: %s", feedback.Message)))
		}
	}

	result, err := t.Execute(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", tc.Function.Name, err)
	}
	if result == nil {
		return nil, fmt.Errorf("tool %s returned no result", tc.Function.Name)
	}

	if result.Output == "" {
		result.Output = EmptyOutputPlaceholder
	}

	if e.hookManager.HasHandlers(hook.AfterToolExecution) {
		hookData := hook.NewHookData(hook.AfterToolExecution, tc.Function.Name).
			Set(hook.KeyParams, string(params)).
			Set(hook.KeyResult, result).
			Set(hook.KeyDuration, time.Since(startTime))
		if id := RequestIDFromContext(ctx); id != "" {
			hookData.Set(hook.KeyRequestID, id)
		}

		// After hooks don't block, just trigger
		e.hookManager.Notify(ctx, hookData)
	}

	return finish(result)
}

// NormalizeArguments returns the model-emitted argument string as a JSON
// object. Empty input becomes {}; malformed JSON is repaired when possible.
func NormalizeArguments(args string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(args)
	if trimmed == "" {
		return json.RawMessage("{}"), nil
	}

	if !json.Valid([]byte(trimmed)) {
		repaired, err := jsonrepair.JSONRepair(trimmed)
		if err != nil {
			return nil, fmt.Errorf("invalid arguments %q: %w", args, err)
		}
		trimmed = repaired
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}

	return json.RawMessage(trimmed), nil
}

// ValidateArguments checks params against the tool's JSON schema
func ValidateArguments(params json.RawMessage, schema map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewBytesLoader(params),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
	}

	return nil
}

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID tags ctx with the pipeline request ID so hooks can correlate
// tool activity with the request that caused it
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID stored by WithRequestID
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
