// Package provider builds the configured llm.Client.
package provider

import (
	"context"
	"fmt"

	"qroute/internal/config"
	"qroute/internal/llm"
	"qroute/internal/llm/gemini"
	"qroute/internal/llm/openai"
)

// New returns a client for cfg.Provider with cfg.Timeout applied to every
// call. The client's default model is the general model; stages pass their
// own model per request.
func New(ctx context.Context, cfg config.LLMConfig) (llm.Client, error) {
	apiKey := cfg.ResolveAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("no API key for provider %s: set llm.api_key or the provider's API key variable", cfg.Provider)
	}

	var client llm.Client
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		client = openai.NewClient(apiKey, cfg.GeneralModel, cfg.BaseURL)

	case config.ProviderGemini:
		opts := []gemini.Option{gemini.WithModel(cfg.GeneralModel)}
		if cfg.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.BaseURL))
		}
		gc, err := gemini.New(ctx, apiKey, opts...)
		if err != nil {
			return nil, err
		}
		client = gc

	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	return llm.WithTimeout(client, cfg.Timeout), nil
}
