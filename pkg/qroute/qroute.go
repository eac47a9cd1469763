// Package qroute is the embeddable entry point of the query router.
//
//	cfg := qroute.DefaultConfig()
//	cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
//	r, err := qroute.New(ctx, cfg)
//	res, err := r.Process(ctx, "计算 123 + 456 * 789")
package qroute

import (
	"context"

	"qroute/internal/app"
	"qroute/internal/config"
	"qroute/internal/llm"
	"qroute/internal/logger"
	"qroute/internal/pipeline"
	"qroute/internal/router"
)

type (
	Config  = config.Config
	Result  = pipeline.Result
	Route   = router.Route
	Logger  = logger.Logger
	Client  = llm.Client
	Message = llm.Message
)

const (
	RouteCalculate = router.RouteCalculate
	RouteSearch    = router.RouteSearch
	RouteNone      = router.RouteNone
)

var (
	ErrEmptyQuery       = pipeline.ErrEmptyQuery
	ErrClassification   = pipeline.ErrClassification
	ErrDirectCompletion = pipeline.ErrDirectCompletion
)

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads a YAML config file
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Router answers queries. It is safe for concurrent use.
type Router struct {
	app *app.App
}

// New builds a router using the model provider named in cfg
func New(ctx context.Context, cfg *Config, log *Logger) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Router{app: a}, nil
}

// NewWithClient builds a router on an existing model client
func NewWithClient(cfg *Config, client Client, log *Logger) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a, err := app.Assemble(cfg, client, log)
	if err != nil {
		return nil, err
	}
	return &Router{app: a}, nil
}

// Process classifies query and answers it
func (r *Router) Process(ctx context.Context, query string) (*Result, error) {
	return r.app.Orchestrator.Process(ctx, query)
}
