// Package router classifies a query into the processing route that should
// answer it.
package router

import (
	"context"
	"fmt"
	"strings"

	"qroute/internal/llm"
	"qroute/internal/logger"
)

// Route is the processing path chosen for a query
type Route string

const (
	RouteCalculate Route = "calculate"
	RouteSearch    Route = "search"
	RouteNone      Route = "none"
)

// NeedsTool reports whether the route goes through the tool stage
func (r Route) NeedsTool() bool {
	return r == RouteCalculate || r == RouteSearch
}

// maxDecisionTokens keeps the routing completion to a marker
const maxDecisionTokens = 20

// Router asks a language model which route a query needs
type Router struct {
	client llm.Client
	model  string
	log    *logger.Logger
}

// Option configures a Router
type Option func(*Router)

// WithModel selects the routing model; empty uses the client default
func WithModel(model string) Option {
	return func(r *Router) {
		r.model = model
	}
}

// WithLogger sets the logger used for route decisions when ctx carries
// none of its own
func WithLogger(log *logger.Logger) Option {
	return func(r *Router) {
		if log != nil {
			r.log = log
		}
	}
}

func New(client llm.Client, opts ...Option) *Router {
	r := &Router{
		client: client,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route makes one short completion and maps its answer onto a Route.
// The model's reply is matched by substring, calculate first, and anything
// without a tool marker is RouteNone.
func (r *Router) Route(ctx context.Context, query string) (Route, error) {
	resp, err := r.client.Chat(ctx, &llm.ChatRequest{
		Model: r.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: decisionPrompt(query)},
		},
		MaxTokens: maxDecisionTokens,
	})
	if err == nil && resp == nil {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		return "", fmt.Errorf("routing completion failed: %w", err)
	}

	raw := strings.TrimSpace(resp.Message.Content)
	route := Parse(raw)
	logger.FromContext(ctx, r.log).RouteDecision(string(route), raw)
	return route, nil
}

// Parse maps a routing reply onto a Route
func Parse(reply string) Route {
	switch {
	case strings.Contains(reply, MarkerCalculate):
		return RouteCalculate
	case strings.Contains(reply, MarkerSearch):
		return RouteSearch
	default:
		return RouteNone
	}
}
