package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"qroute/internal/app"
	"qroute/internal/cli"
	"qroute/internal/config"
	"qroute/internal/mcp"
	"qroute/internal/server"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	apiBaseURL string
	apiKey     string
	verbose    bool
	noColor    bool

	rawOutput  bool
	jsonOutput bool
	demo       bool

	serveAddr string
)

// demoQueries mirror the mix of routes the pipeline is built for
var demoQueries = []string{
	"中国的首都在哪里？",
	"计算 123 + 456 * 789",
	"Python是什么编程语言？",
	"今天是几号？",
	"长城是什么时候建造的？",
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "qroute",
		Short:         "Route questions to a calculator, Wikipedia or a plain LLM answer",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: search standard locations)")
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api-base-url", "", "Override llm.base_url")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Override llm.api_key")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose output (debug mode)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	askCmd := &cobra.Command{
		Use:   "ask [query...]",
		Short: "Answer a single query",
		RunE:  runAsk,
	}
	askCmd.Flags().BoolVar(&rawOutput, "raw", false, "Print the answer without markdown rendering")
	askCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	askCmd.Flags().BoolVar(&demo, "demo", false, "Run the built-in sample queries")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /api/query over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ask tool over MCP stdio",
		Args:  cobra.NoArgs,
		RunE:  runMCP,
	}

	rootCmd.AddCommand(askCmd, serveCmd, mcpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadWithDefaults()
	}
	if err != nil {
		return nil, err
	}

	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if apiBaseURL != "" {
		cfg.LLM.BaseURL = apiBaseURL
	}
	return cfg, nil
}

func buildApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := app.NewLogger(cfg.Log, verbose, !noColor)
	log.Debug("Using %s provider (routing=%s tool=%s general=%s)",
		cfg.LLM.Provider, cfg.LLM.RoutingModel, cfg.LLM.ToolModel, cfg.LLM.GeneralModel)

	return app.Build(ctx, cfg, log)
}

func runAsk(cmd *cobra.Command, args []string) error {
	var queries []string
	switch {
	case demo:
		queries = demoQueries
	case len(args) > 0:
		queries = []string{strings.Join(args, " ")}
	default:
		return errors.New("a query is required (or use --demo)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}

	format := cli.FormatMarkdown
	switch {
	case jsonOutput:
		format = cli.FormatJSON
	case rawOutput:
		format = cli.FormatRaw
	}
	out := cli.NewWriter(os.Stdout)
	out.SetColorMode(!noColor)
	printer := cli.NewPrinter(out, format)

	var failed int
	for _, q := range queries {
		if demo {
			printer.PrintQuery(q)
		}

		res, err := a.Orchestrator.Process(ctx, q)
		if err != nil {
			if !demo {
				return err
			}
			printer.PrintError(err)
			failed++
			continue
		}
		if err := printer.PrintResult(res); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(queries))
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}

	addr := a.Config.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := server.New(addr, a.Orchestrator, a.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}

	return mcp.NewServer(a.Orchestrator, version, a.Logger).Run(ctx)
}
