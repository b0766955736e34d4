package llmfactory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/effective-security/mcpchat/pkg/llmfactory"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func Test_LoadConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "fakekey")

	cfg, err := llmfactory.LoadConfig("testdata/llm.yaml")
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)

	assert.Equal(t, "bedrock", cfg.DefaultProvider)
	br := cfg.Providers[0]
	assert.Equal(t, "BEDROCK", br.APIType)
	assert.Equal(t, "us-east-1", br.Region)
	assert.Equal(t, 1000, br.MaxTokens)
	assert.Equal(t, 0.0, br.Temperature)
	timeout, err := br.RequestTimeout()
	require.NoError(t, err)
	assert.Equal(t, "1m0s", timeout.String())

	an := cfg.Providers[1]
	assert.Equal(t, "ANTHROPIC", an.APIType)
	assert.Equal(t, "fakekey", an.Token)
	timeout, err = an.RequestTimeout()
	require.NoError(t, err)
	assert.Zero(t, timeout)

	assert.Equal(t, 5, cfg.Assistant.MaxTurns)
	assert.Equal(t, "You are a helpful assistant. Use tools only when necessary.", cfg.Assistant.Instructions)

	assert.Equal(t, "python", cfg.MCP.Command)
	assert.Equal(t, []string{"server.py"}, cfg.MCP.Args)
	assert.Equal(t, map[string]string{"PT_API_TOKEN": "test-token"}, cfg.MCP.Env)
	assert.Empty(t, cfg.MCP.URL)

	assert.Empty(t, cfg.History.RedisURL)
	assert.Equal(t, "mcpchat", cfg.History.Prefix)

	empty, err := llmfactory.LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, empty.Providers)

	_, err = llmfactory.LoadConfig("testdata/non-existent.yaml")
	require.Error(t, err)
}

func Test_FindModel(t *testing.T) {
	cfg := &llmfactory.ProviderConfig{
		DefaultModel:    "m1",
		AvailableModels: []string{"m1", "m2"},
	}
	assert.Equal(t, "m1", cfg.FindModel())
	assert.Equal(t, "m2", cfg.FindModel("unknown", "m2"))
	assert.Equal(t, "m1", cfg.FindModel("unknown"))

	cfg.Timeout = "soon"
	_, err := cfg.RequestTimeout()
	assert.Error(t, err)
}

func Test_Factory(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "fakekey")

	cfg, err := llmfactory.LoadConfig("testdata/llm.yaml")
	require.NoError(t, err)

	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		return &fakeLLM{provider: cfg.APIType, model: cfg.FindModel(preferredModels...)}, nil
	}
	defer func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	}()

	f := llmfactory.New(cfg)
	model, err := f.DefaultModel()
	require.NoError(t, err)
	fm := model.(*fakeLLM)
	assert.Equal(t, "anthropic.claude-3-sonnet-20240229-v1:0", fm.model)
	assert.Equal(t, "BEDROCK", fm.provider)

	model, err = f.ModelByName("claude-3-5-haiku-20241022")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "claude-3-5-haiku-20241022", fm.model)
	assert.Equal(t, "ANTHROPIC", fm.provider)

	// cached by name
	again, err := f.ModelByName("claude-3-5-haiku-20241022")
	require.NoError(t, err)
	assert.Same(t, model, again)

	model, err = f.ModelByName("unknown", "anthropic.claude-3-haiku-20240307-v1:0")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", fm.model)

	// fallback to the default model
	model, err = f.ModelByName("non-existent-model")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "anthropic.claude-3-sonnet-20240229-v1:0", fm.model)

	model, err = f.ModelByType("ANTHROPIC")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "claude-3-5-sonnet-20241022", fm.model)

	model, err = f.ModelByProvider("anthropic")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "claude-3-5-sonnet-20241022", fm.model)
	assert.Equal(t, "ANTHROPIC", fm.provider)

	_, err = f.ModelByProvider("openai")
	assert.EqualError(t, err, "provider not found: openai")

	_, err = f.ModelByType("UNSUPPORTED")
	assert.EqualError(t, err, "provider not found for type: UNSUPPORTED")

	_, err = llmfactory.New(&llmfactory.Config{}).DefaultModel()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no providers configured")

	// invalid default provider falls back to the first one
	model, err = llmfactory.New(&llmfactory.Config{
		DefaultProvider: "non-existent",
		Providers:       cfg.Providers,
	}).DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, "BEDROCK", model.(*fakeLLM).provider)
}

func Test_Load(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "fakekey")

	f, err := llmfactory.Load("testdata/llm.yaml")
	require.NoError(t, err)
	require.NotNil(t, f)

	_, err = llmfactory.Load("testdata/non-existent.yaml")
	require.Error(t, err)
}

func Test_CreateLLM(t *testing.T) {
	model, err := llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		Name:         "anthropic",
		APIType:      "anthropic",
		Token:        "fakekey",
		DefaultModel: "claude-3-5-sonnet-20241022",
		MaxTokens:    500,
		Timeout:      "30s",
	})
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-sonnet-20241022", model.GetName())
	assert.Equal(t, llms.ProviderAnthropic, model.GetProviderType())

	model, err = llmfactory.CreateLLM(&llmfactory.ProviderConfig{
		Name:         "bedrock",
		APIType:      "BEDROCK",
		Region:       "us-west-2",
		DefaultModel: "anthropic.claude-3-haiku-20240307-v1:0",
	})
	require.NoError(t, err)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", model.GetName())
	assert.Equal(t, llms.ProviderBedrock, model.GetProviderType())

	_, err = llmfactory.CreateLLM(&llmfactory.ProviderConfig{APIType: "openai"})
	assert.EqualError(t, err, "unsupported provider type: OPENAI")

	_, err = llmfactory.CreateLLM(&llmfactory.ProviderConfig{APIType: "BEDROCK", DefaultModel: "m", Timeout: "later"})
	assert.Error(t, err)
}

type fakeLLM struct {
	provider string
	model    string
}

func (f *fakeLLM) GetName() string {
	return f.model
}

func (f *fakeLLM) GetProviderType() llms.ProviderType {
	return llms.ProviderType(f.provider)
}

func (f *fakeLLM) Complete(context.Context, []llms.Message, []llms.ToolSpec) (*llms.CompletionResponse, error) {
	return &llms.CompletionResponse{StopReason: llms.StopReasonEndTurn}, nil
}

func Test_DefaultProviderConfig(t *testing.T) {
	cfg := llmfactory.DefaultProviderConfig()
	assert.Equal(t, "BEDROCK", cfg.APIType)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "anthropic.claude-3-sonnet-20240229-v1:0", cfg.FindModel())
	assert.Equal(t, 1000, cfg.MaxTokens)
	assert.Zero(t, cfg.Temperature)
}

func Test_LoadConfig_Written(t *testing.T) {
	t.Setenv("TEST_MCP_TOKEN", "secret")

	cfg := &llmfactory.Config{
		DefaultProvider: "anthropic",
		Providers: []*llmfactory.ProviderConfig{
			{Name: "anthropic", APIType: "ANTHROPIC", Token: "${TEST_MCP_TOKEN}", DefaultModel: "claude-3-5-haiku-20241022", Temperature: 0.5},
		},
		Assistant: llmfactory.AssistantConfig{MaxTurns: 3},
	}
	cfg.MCP.URL = "http://localhost:8000/mcp"
	cfg.MCP.Env = map[string]string{"PT_API_TOKEN": "token"}

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "mcpchat.yaml")
	require.NoError(t, os.WriteFile(file, data, 0o600))

	loaded, err := llmfactory.LoadConfig(file)
	require.NoError(t, err)
	require.Len(t, loaded.Providers, 1)
	assert.Equal(t, "claude-3-5-haiku-20241022", loaded.Providers[0].DefaultModel)
	assert.Equal(t, 0.5, loaded.Providers[0].Temperature)
	assert.Equal(t, 3, loaded.Assistant.MaxTurns)
	assert.Equal(t, "http://localhost:8000/mcp", loaded.MCP.URL)
	assert.Equal(t, "token", loaded.MCP.Env["PT_API_TOKEN"])
	assert.Equal(t, "secret", loaded.Providers[0].Token)
}
