package llmfactory

import (
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/mcp"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llms/bedrock"
	"github.com/effective-security/x/configloader"
)

type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
	// Assistant specifies the query loop settings
	Assistant AssistantConfig `json:"assistant" yaml:"assistant"`
	// MCP specifies the tool server, a server script given on the command line takes precedence
	MCP mcp.ServerConfig `json:"mcp" yaml:"mcp"`
	// History specifies where resolved queries are recorded
	History HistoryConfig `json:"history" yaml:"history"`
}

// ProviderConfig for a model provider
type ProviderConfig struct {
	Name string `json:"name" yaml:"name"`
	// APIType specifies the type of API to use: BEDROCK|ANTHROPIC
	APIType         string   `json:"api_type,omitempty" yaml:"api_type,omitempty"`
	Token           string   `json:"token,omitempty" yaml:"token,omitempty"`
	Region          string   `json:"region,omitempty" yaml:"region,omitempty"`
	BaseURL         string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	MaxTokens       int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	// Temperature is 0 unless set
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	// Timeout of a single model request, for example 60s
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// AssistantConfig specifies the query loop settings
type AssistantConfig struct {
	MaxTurns     int    `json:"max_turns,omitempty" yaml:"max_turns,omitempty"`
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

// HistoryConfig specifies the query history store
type HistoryConfig struct {
	// RedisURL of the store, in-memory history is used when empty
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
	// Prefix of the Redis keys
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// DefaultProviderConfig returns the provider used when none is configured:
// Bedrock in us-east-1.
func DefaultProviderConfig() *ProviderConfig {
	return &ProviderConfig{
		Name:         "bedrock",
		APIType:      string(llms.ProviderBedrock),
		Region:       "us-east-1",
		DefaultModel: bedrock.DefaultModel,
		MaxTokens:    llms.DefaultMaxTokens,
	}
}

func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// RequestTimeout returns the configured timeout, zero when not set.
func (c *ProviderConfig) RequestTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid timeout for provider %s", c.Name)
	}
	return d, nil
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
