// Package config loads and validates the application configuration from
// YAML or JSON5 files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// ProviderConfig selects and authenticates the model backend.
type ProviderConfig struct {
	// Name picks the client: "openai", "dashscope", or any
	// OpenAI-compatible endpoint via APIBase.
	Name              string `yaml:"name" json:"name"`
	APIKey            string `yaml:"api_key" json:"api_key"`
	APIBase           string `yaml:"api_base" json:"api_base"`
	Model             string `yaml:"model" json:"model"`
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// AgentConfig tunes the turn loop.
type AgentConfig struct {
	ID             string `yaml:"id" json:"id"`
	SystemPrompt   string `yaml:"system_prompt" json:"system_prompt"`
	MaxToolRounds  int    `yaml:"max_tool_rounds" json:"max_tool_rounds"`
	MaxRetries     int    `yaml:"max_retries" json:"max_retries"`
	RetryBackoffMS int    `yaml:"retry_backoff_ms" json:"retry_backoff_ms"`
	ParallelTools  bool   `yaml:"parallel_tools" json:"parallel_tools"`
	// AbortOnToolError fails the turn on the first tool failure instead of
	// folding the failure back for the model.
	AbortOnToolError bool   `yaml:"abort_on_tool_error" json:"abort_on_tool_error"`
	GuardAction      string `yaml:"guard_action" json:"guard_action"`
}

// RetryBackoff returns the configured backoff as a duration.
func (a AgentConfig) RetryBackoff() time.Duration {
	return time.Duration(a.RetryBackoffMS) * time.Millisecond
}

// MemoryConfig tunes the idearium and its trimming strategy.
type MemoryConfig struct {
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`
	// Encoding selects the tiktoken encoding, e.g. "cl100k_base".
	Encoding string `yaml:"encoding" json:"encoding"`
	// Strategy is one of "evict_oldest", "summarize", "archive".
	Strategy   string `yaml:"strategy" json:"strategy"`
	KeepRecent int    `yaml:"keep_recent" json:"keep_recent"`
	// AllowLoss lets the archive strategy evict even when the archive
	// write fails.
	AllowLoss   bool   `yaml:"allow_loss" json:"allow_loss"`
	ArchivePath string `yaml:"archive_path" json:"archive_path"`
}

// ToolsConfig tunes tool execution.
type ToolsConfig struct {
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
}

// TracingConfig enables OTLP span export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Endpoint    string `yaml:"endpoint" json:"endpoint"`
	Protocol    string `yaml:"protocol" json:"protocol"` // grpc|http
	Insecure    bool   `yaml:"insecure" json:"insecure"`
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// LoggingConfig tunes the slog setup.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug|info|warn|error
	Format string `yaml:"format" json:"format"` // text|json
}

// Config is the root of the configuration file.
type Config struct {
	Provider ProviderConfig `yaml:"provider" json:"provider"`
	Agent    AgentConfig    `yaml:"agent" json:"agent"`
	Memory   MemoryConfig   `yaml:"memory" json:"memory"`
	Tools    ToolsConfig    `yaml:"tools" json:"tools"`
	Tracing  TracingConfig  `yaml:"tracing" json:"tracing"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// Default returns a config with all defaults applied.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:    "openai",
			APIBase: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Agent: AgentConfig{
			ID:             DefaultAgentID,
			MaxToolRounds:  8,
			MaxRetries:     2,
			RetryBackoffMS: 500,
			GuardAction:    "warn",
		},
		Memory: MemoryConfig{
			MaxTokens:  8192,
			Encoding:   "cl100k_base",
			Strategy:   "evict_oldest",
			KeepRecent: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a config file, applies defaults, expands ${ENV} references in
// string fields, and validates the result. The parser is chosen by file
// extension: .json5/.json use JSON5, everything else YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json5", ".json":
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.expandEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnv substitutes ${VAR} in credential-bearing fields so keys can
// stay out of the config file.
func (c *Config) expandEnv() {
	c.Provider.APIKey = os.ExpandEnv(c.Provider.APIKey)
	c.Provider.APIBase = os.ExpandEnv(c.Provider.APIBase)
	c.Memory.ArchivePath = os.ExpandEnv(c.Memory.ArchivePath)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Provider.Model == "" {
		return fmt.Errorf("config: provider.model is required")
	}
	if c.Memory.MaxTokens <= 0 {
		return fmt.Errorf("config: memory.max_tokens must be positive, got %d", c.Memory.MaxTokens)
	}
	switch c.Memory.Strategy {
	case "evict_oldest", "summarize", "archive":
	default:
		return fmt.Errorf("config: unknown memory.strategy %q", c.Memory.Strategy)
	}
	if c.Memory.Strategy == "archive" && c.Memory.ArchivePath == "" {
		return fmt.Errorf("config: memory.archive_path is required for the archive strategy")
	}
	switch c.Agent.GuardAction {
	case "off", "warn", "block":
	default:
		return fmt.Errorf("config: unknown agent.guard_action %q", c.Agent.GuardAction)
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("config: tracing.endpoint is required when tracing is enabled")
	}
	c.Agent.ID = NormalizeAgentID(c.Agent.ID)
	return nil
}
