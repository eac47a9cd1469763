// Package app assembles the query pipeline from configuration.
package app

import (
	"context"
	"os"

	"qroute/internal/config"
	"qroute/internal/hook"
	"qroute/internal/hook/handlers"
	"qroute/internal/knowledge"
	"qroute/internal/llm"
	"qroute/internal/llm/provider"
	"qroute/internal/logger"
	"qroute/internal/pipeline"
	"qroute/internal/router"
	"qroute/internal/tool"
	"qroute/internal/tool/builtin"
)

// App holds the long-lived pieces shared by every request
type App struct {
	Config       *config.Config
	Orchestrator *pipeline.Orchestrator
	Registry     *tool.Registry
	Hooks        *hook.Manager
	Logger       *logger.Logger
}

// Build creates the configured model client and assembles the pipeline on it
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	client, err := provider.New(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	return Assemble(cfg, client, log)
}

// Assemble wires the pipeline around an existing model client, bounding
// every call by cfg.LLM.Timeout
func Assemble(cfg *config.Config, client llm.Client, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	client = llm.WithTimeout(client, cfg.LLM.Timeout)

	source := knowledge.NewClient(cfg.Search.Endpoint,
		knowledge.WithTimeout(cfg.Search.Timeout),
		knowledge.WithUserAgent(cfg.Search.UserAgent),
	)

	registry := tool.NewRegistry()
	tools := []tool.Tool{
		builtin.NewCalculatorTool(),
		builtin.NewSearchTool(source,
			builtin.WithLimit(cfg.Search.Limit),
			builtin.WithSnippetLength(cfg.Search.SnippetLength),
		),
	}
	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}

	hooks := hook.NewManager()
	hooks.Register(handlers.NewAuditHandler(log))

	executor := tool.NewExecutor(registry)
	executor.SetHookManager(hooks)

	orch := pipeline.New(
		router.New(client,
			router.WithModel(cfg.LLM.RoutingModel),
			router.WithLogger(log),
		),
		pipeline.NewToolStage(client, registry, executor,
			pipeline.WithToolModel(cfg.LLM.ToolModel),
		),
		pipeline.NewDirectStage(client, cfg.LLM.GeneralModel),
		pipeline.WithLogger(log),
		pipeline.WithHookManager(hooks),
	)

	return &App{
		Config:       cfg,
		Orchestrator: orch,
		Registry:     registry,
		Hooks:        hooks,
		Logger:       log,
	}, nil
}

// NewLogger builds the logger described by cfg, writing to stderr so stdout
// stays free for answers and the MCP stdio transport. verbose forces debug.
func NewLogger(cfg config.LogConfig, verbose, color bool) *logger.Logger {
	level := logger.ParseLevel(cfg.Level)
	if verbose {
		level = logger.LevelDebug
	}
	log := logger.NewLogger(os.Stderr, level)
	log.SetColorMode(color)
	log.SetJSON(cfg.Format == "json")
	return log
}
