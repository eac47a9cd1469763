package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported LLM providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Built-in model defaults per provider
const (
	DefaultBaseURL      = "https://api.groq.com/openai/v1"
	DefaultRoutingModel = "llama3-70b-8192"
	DefaultToolModel    = "llama-3.3-70b-versatile"
	DefaultGeneralModel = "llama3-70b-8192"
	DefaultGeminiModel  = "gemini-2.5-flash"
)

// Config represents the complete qroute configuration
type Config struct {
	LLM    LLMConfig    `yaml:"llm"`
	Search SearchConfig `yaml:"search"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// LLMConfig selects the completion backend and the model used by each stage
type LLMConfig struct {
	Provider     string        `yaml:"provider"`      // "openai" (any OpenAI-compatible endpoint) or "gemini"
	APIKey       string        `yaml:"api_key"`       // Supports ${VAR}
	BaseURL      string        `yaml:"base_url"`      // Empty uses the provider default
	RoutingModel string        `yaml:"routing_model"` // Intent classification
	ToolModel    string        `yaml:"tool_model"`    // Forced tool call + summary
	GeneralModel string        `yaml:"general_model"` // Direct answers
	Timeout      time.Duration `yaml:"timeout"`       // Per completion call
}

// SearchConfig configures the knowledge-source client
type SearchConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Limit         int           `yaml:"limit"`
	SnippetLength int           `yaml:"snippet_length"`
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logging output
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "error"
	Format string `yaml:"format"` // "console" or "json"
}

// Default returns the built-in configuration. It targets Groq's
// OpenAI-compatible endpoint and Chinese Wikipedia.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:     ProviderOpenAI,
			BaseURL:      DefaultBaseURL,
			RoutingModel: DefaultRoutingModel,
			ToolModel:    DefaultToolModel,
			GeneralModel: DefaultGeneralModel,
			Timeout:      60 * time.Second,
		},
		Search: SearchConfig{
			Endpoint:      "https://zh.wikipedia.org/w/api.php",
			Limit:         3,
			SnippetLength: 500,
			Timeout:       15 * time.Second,
			UserAgent:     "qroute/1.0",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads and parses the YAML config file on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	cfg.LLM.applyProviderDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads config with fallback to default locations
// Checks: ./qroute.yaml, ./configs/qroute.yaml, ~/.config/qroute/qroute.yaml, /etc/qroute/qroute.yaml
func LoadWithDefaults() (*Config, error) {
	locations := []string{
		"./qroute.yaml",
		"./configs/qroute.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "qroute", "qroute.yaml"))
	}

	locations = append(locations, "/etc/qroute/qroute.yaml")

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return Load(loc)
		}
	}

	// No config found - defaults are valid on their own
	cfg := Default()
	return cfg, cfg.Validate()
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are
// given) into the process environment. Missing files are ignored and
// variables already set are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Validate checks config correctness
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}

	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log: unsupported format: %s (use 'console' or 'json')", c.Log.Format)
	}

	return nil
}

// Validate checks the LLM section
func (l *LLMConfig) Validate() error {
	switch l.Provider {
	case ProviderOpenAI, ProviderGemini:
	case "":
		return fmt.Errorf("provider is required")
	default:
		return fmt.Errorf("unsupported provider: %s (use '%s' or '%s')", l.Provider, ProviderOpenAI, ProviderGemini)
	}

	if l.RoutingModel == "" || l.ToolModel == "" || l.GeneralModel == "" {
		return fmt.Errorf("routing_model, tool_model and general_model are required")
	}

	if l.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

// Validate checks the search section
func (s *SearchConfig) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if s.Limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}
	if s.SnippetLength <= 0 {
		return fmt.Errorf("snippet_length must be positive")
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// applyProviderDefaults swaps Groq defaults the file did not override for
// the selected provider's own
func (l *LLMConfig) applyProviderDefaults() {
	if l.Provider != ProviderGemini {
		return
	}
	if l.BaseURL == DefaultBaseURL {
		l.BaseURL = ""
	}
	if l.RoutingModel == DefaultRoutingModel {
		l.RoutingModel = DefaultGeminiModel
	}
	if l.ToolModel == DefaultToolModel {
		l.ToolModel = DefaultGeminiModel
	}
	if l.GeneralModel == DefaultGeneralModel {
		l.GeneralModel = DefaultGeminiModel
	}
}

// ResolveAPIKey returns the configured key, falling back to the provider's
// conventional environment variables.
func (l *LLMConfig) ResolveAPIKey() string {
	if l.APIKey != "" {
		return l.APIKey
	}

	var vars []string
	switch l.Provider {
	case ProviderGemini:
		vars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	default:
		vars = []string{"GROQ_API_KEY", "OPENAI_API_KEY"}
	}

	for _, v := range vars {
		if key := os.Getenv(v); key != "" {
			return key
		}
	}
	return ""
}
