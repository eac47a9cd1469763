// Package pipeline turns a query into an answer: classify it, then answer
// through the tool stage or the direct stage.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"qroute/internal/hook"
	"qroute/internal/logger"
	"qroute/internal/router"
	"qroute/internal/tool"

	"github.com/google/uuid"
)

// Classifier decides which route a query takes
type Classifier interface {
	Route(ctx context.Context, query string) (router.Route, error)
}

// Result is the outcome of one Process call
type Result struct {
	ID       string       `json:"id"`
	Query    string       `json:"query"`
	Route    router.Route `json:"route"`
	Response string       `json:"response"`

	// Conversation is the message history the answer was produced from
	Conversation *Conversation `json:"-"`
	// Stage is set for tool routes
	Stage *StageRun `json:"-"`
}

// Orchestrator wires the router and both stages together. It holds no
// per-request state and is safe for concurrent use.
type Orchestrator struct {
	router    Classifier
	toolStage *ToolStage
	direct    *DirectStage
	hooks     *hook.Manager
	log       *logger.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the base logger; every run logs with a request_id field
func WithLogger(log *logger.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithHookManager enables the pipeline hook points
func WithHookManager(m *hook.Manager) Option {
	return func(o *Orchestrator) {
		o.hooks = m
	}
}

func New(classifier Classifier, toolStage *ToolStage, direct *DirectStage, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		router:    classifier,
		toolStage: toolStage,
		direct:    direct,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process classifies query and answers it.
//
// Tool-stage failures are contained: the result carries an apologetic
// response and no error is returned. Classification and direct completion
// failures are fatal and come back wrapped in ErrClassification and
// ErrDirectCompletion.
func (o *Orchestrator) Process(ctx context.Context, query string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	id := uuid.NewString()
	ec := NewExecutionContext(id, o.log.With(hook.KeyRequestID, id))
	ctx = WithExecutionContext(tool.WithRequestID(ctx, id), ec)
	ctx = logger.NewContext(ctx, ec.Logger)

	ec.Logger.PipelineStart(query)

	route, err := o.router.Route(ctx, query)
	if err != nil {
		ec.Logger.Error("Routing failed: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrClassification, err)
	}

	o.hooks.Notify(ctx, hook.NewHookData(hook.OnRouteDecided, "").
		Set(hook.KeyRequestID, id).
		Set(hook.KeyQuery, query).
		Set(hook.KeyRoute, string(route)))

	result := &Result{ID: id, Query: query, Route: route}

	if route.NeedsTool() {
		run := o.toolStage.Run(ctx, query, route)
		if run.Err != nil {
			ec.Logger.Error("Tool stage failed: %v", run.Err)
		}
		result.Response = run.Response
		result.Conversation = run.Conversation
		result.Stage = run
	} else {
		conv, err := o.direct.converse(ctx, query)
		if err != nil {
			ec.Logger.Error("Direct completion failed: %v", err)
			return nil, fmt.Errorf("%w: %w", ErrDirectCompletion, err)
		}
		last, _ := conv.Last()
		result.Response = last.Content
		result.Conversation = conv
	}

	elapsed := ec.Elapsed()
	ec.Logger.PipelineEnd(string(route), elapsed, ec.ToolCallCount)

	o.hooks.Notify(ctx, hook.NewHookData(hook.OnPipelineEnd, "").
		Set(hook.KeyRequestID, id).
		Set(hook.KeyQuery, query).
		Set(hook.KeyRoute, string(route)).
		Set(hook.KeyResponse, result.Response).
		Set(hook.KeyDuration, elapsed))

	return result, nil
}

