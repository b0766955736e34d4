package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llms/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModel = "claude-3-5-sonnet-20241022"

func TestNew(t *testing.T) {
	t.Setenv(anthropic.TokenEnvVarName, "")

	tests := []struct {
		name        string
		opts        []anthropic.Option
		errContains string
	}{
		{
			name:        "missing token",
			opts:        []anthropic.Option{anthropic.WithModel(testModel)},
			errContains: "missing API key",
		},
		{
			name:        "missing model",
			opts:        []anthropic.Option{anthropic.WithToken("fake-token")},
			errContains: "model is required",
		},
		{
			name: "valid configuration",
			opts: []anthropic.Option{
				anthropic.WithToken("fake-token"),
				anthropic.WithModel(testModel),
			},
		},
		{
			name: "with custom base URL",
			opts: []anthropic.Option{
				anthropic.WithToken("fake-token"),
				anthropic.WithModel(testModel),
				anthropic.WithBaseURL("https://custom.anthropic.com"),
			},
		},
		{
			name: "with custom HTTP client",
			opts: []anthropic.Option{
				anthropic.WithToken("fake-token"),
				anthropic.WithModel(testModel),
				anthropic.WithHTTPClient(&http.Client{}),
			},
		},
		{
			name: "with beta header",
			opts: []anthropic.Option{
				anthropic.WithToken("fake-token"),
				anthropic.WithModel(testModel),
				anthropic.WithAnthropicBetaHeader("beta-feature-1"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm, err := anthropic.New(tt.opts...)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testModel, llm.GetName())
			assert.Equal(t, llms.ProviderAnthropic, llm.GetProviderType())
		})
	}
}

func TestNewWithEnvironmentVariable(t *testing.T) {
	t.Setenv(anthropic.TokenEnvVarName, "env-token")

	llm, err := anthropic.New(anthropic.WithModel(testModel))
	require.NoError(t, err)
	assert.Equal(t, "env-token", llm.Options.Token)
	assert.Equal(t, llms.DefaultMaxTokens, llm.Options.Call.MaxTokens)
	assert.Equal(t, llms.DefaultTimeout, llm.Options.Call.Timeout)
}

func TestProcessMessages(t *testing.T) {
	t.Parallel()

	msgs, err := anthropic.ProcessMessages([]llms.Message{
		llms.NewTextMessage(llms.RoleUser, "instructions"),
		llms.NewTextMessage(llms.RoleUser, "query"),
		llms.NewTextMessage(llms.RoleAssistant, "thinking"),
		llms.NewToolUseMessage(llms.ToolUse{ID: "t1", Name: "get_weather"}),
		llms.NewToolResultMessage(llms.ToolResult{ToolUseID: "t1", Content: []llms.TextContent{{Text: "sunny"}}}),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	js, err := json.Marshal(msgs)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(js, &decoded))
	assert.Equal(t, "user", decoded[0]["role"])
	assert.Len(t, decoded[0]["content"], 2)
	assert.Equal(t, "assistant", decoded[1]["role"])
	assert.Len(t, decoded[1]["content"], 2)
	assert.Equal(t, "user", decoded[2]["role"])

	toolUse := decoded[1]["content"].([]any)[1].(map[string]any)
	assert.Equal(t, "tool_use", toolUse["type"])
	assert.Equal(t, "t1", toolUse["id"])
	assert.Equal(t, map[string]any{}, toolUse["input"])

	toolResult := decoded[2]["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_result", toolResult["type"])
	assert.Equal(t, "t1", toolResult["tool_use_id"])

	_, err = anthropic.ProcessMessages([]llms.Message{{Role: "system", Content: []llms.ContentBlock{llms.TextContent{Text: "x"}}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, llms.ErrUnexpectedRole))
}

func TestToTools(t *testing.T) {
	t.Parallel()

	assert.Nil(t, anthropic.ToTools(nil))

	tools := anthropic.ToTools([]llms.ToolSpec{
		llms.NewToolSpec("get_weather", "Get the weather", map[string]any{
			"city": map[string]any{"type": "string"},
		}, "args", "city"),
	})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "get_weather", tools[0].OfTool.Name)
	assert.Equal(t, []string{"city"}, tools[0].OfTool.InputSchema.Required)
	assert.Equal(t, map[string]any{"city": map[string]any{"type": "string"}}, tools[0].OfTool.InputSchema.Properties)
}

type recordedRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
	Messages    []map[string]any `json:"messages"`
	Tools       []map[string]any `json:"tools"`
}

func newServer(t *testing.T, status int, body string, got *recordedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		raw, err := io.ReadAll(r.Body)
		if assert.NoError(t, err) && got != nil {
			assert.NoError(t, json.Unmarshal(raw, got))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newLLM(t *testing.T, srv *httptest.Server, opts ...anthropic.Option) *anthropic.LLM {
	t.Helper()
	opts = append([]anthropic.Option{
		anthropic.WithToken("test-key"),
		anthropic.WithModel(testModel),
		anthropic.WithBaseURL(srv.URL),
		anthropic.WithHTTPClient(srv.Client()),
	}, opts...)
	llm, err := anthropic.New(opts...)
	require.NoError(t, err)
	return llm
}

func TestComplete_ToolUse(t *testing.T) {
	t.Parallel()

	var got recordedRequest
	srv := newServer(t, http.StatusOK, `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-3-5-sonnet-20241022",
		"stop_reason": "tool_use",
		"content": [
			{"type": "text", "text": "let me check"},
			{"type": "tool_use", "id": "tu-1", "name": "get_weather", "input": {"city": "Paris", "days": 3}}
		],
		"usage": {"input_tokens": 12, "output_tokens": 5}
	}`, &got)

	llm := newLLM(t, srv, anthropic.WithMaxTokens(500), anthropic.WithTemperature(0.5), anthropic.WithTimeout(5*time.Second))

	resp, err := llm.Complete(context.Background(),
		[]llms.Message{llms.NewTextMessage(llms.RoleUser, "weather in Paris?")},
		[]llms.ToolSpec{llms.NewToolSpec("get_weather", "Get the weather", map[string]any{"city": map[string]any{"type": "string"}}, "args")},
	)
	require.NoError(t, err)
	assert.Equal(t, llms.StopReasonToolUse, resp.StopReason)
	assert.Equal(t, llms.Usage{InputTokens: 12, OutputTokens: 5}, resp.Usage)
	require.Len(t, resp.Content, 2)
	assert.Equal(t, llms.TextContent{Text: "let me check"}, resp.Content[0])
	assert.Equal(t, llms.ToolUse{
		ID:    "tu-1",
		Name:  "get_weather",
		Input: map[string]any{"city": "Paris", "days": float64(3)},
	}, resp.Content[1])

	assert.Equal(t, testModel, got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	assert.InDelta(t, 0.5, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "get_weather", got.Tools[0]["name"])
}

func TestComplete_StopReasons(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want llms.StopReason
	}{
		{"end_turn", llms.StopReasonEndTurn},
		{"max_tokens", llms.StopReasonMaxTokens},
		{"stop_sequence", llms.StopReasonStopSequence},
		{"refusal", llms.StopReasonContentFiltered},
		{"pause_turn", llms.StopReasonEndTurn},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			srv := newServer(t, http.StatusOK, `{
				"id": "msg_1",
				"type": "message",
				"role": "assistant",
				"model": "claude-3-5-sonnet-20241022",
				"stop_reason": "`+tt.in+`",
				"content": [{"type": "text", "text": "ok"}],
				"usage": {"input_tokens": 1, "output_tokens": 1}
			}`, nil)

			resp, err := newLLM(t, srv).Complete(context.Background(), []llms.Message{llms.NewTextMessage(llms.RoleUser, "hi")}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StopReason)
		})
	}
}

func TestComplete_GatewayErrors(t *testing.T) {
	t.Parallel()

	t.Run("http error", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t, http.StatusInternalServerError, `{"type":"error","error":{"type":"api_error","message":"boom"}}`, nil)
		_, err := newLLM(t, srv).Complete(context.Background(), []llms.Message{llms.NewTextMessage(llms.RoleUser, "hi")}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, llms.ErrGateway))
		assert.Contains(t, err.Error(), "anthropic: failed to create message")
	})

	t.Run("missing stop reason", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t, http.StatusOK, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"content": [{"type": "text", "text": "ok"}],
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`, nil)
		_, err := newLLM(t, srv).Complete(context.Background(), []llms.Message{llms.NewTextMessage(llms.RoleUser, "hi")}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, llms.ErrGateway))
		assert.EqualError(t, err, "anthropic: response has no stop reason")
	})

	t.Run("invalid role", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t, http.StatusOK, `{}`, nil)
		_, err := newLLM(t, srv).Complete(context.Background(), []llms.Message{{Role: "system", Content: []llms.ContentBlock{llms.TextContent{Text: "x"}}}}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, llms.ErrGateway))
		assert.True(t, errors.Is(err, llms.ErrUnexpectedRole))
	})
}
