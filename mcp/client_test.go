package mcp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/mcp"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/tools"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "weather", Version: "v0.0.1"}, nil)

	server.AddTool(&mcpsdk.Tool{
		Name:        "get_weather",
		Description: "Get the weather for a city",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string"},
			},
			"required": []any{"city"},
			"title":    "get_weatherArguments",
		},
	}, func(_ context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args struct {
			City string `json:"city"`
		}
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return nil, err
		}
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{
				&mcpsdk.TextContent{Text: "sunny in " + args.City},
				&mcpsdk.TextContent{Text: "22C"},
			},
		}, nil
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "broken",
		Description: "Always fails",
		InputSchema: map[string]any{"type": "object"},
	}, func(_ context.Context, _ *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return &mcpsdk.CallToolResult{
			IsError: true,
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "boom"}},
		}, nil
	})
	return server
}

func TestConnectInProcess(t *testing.T) {
	ctx := context.Background()

	client, err := mcp.ConnectInProcess(ctx, newTestServer())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	list, err := client.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "broken", list[0].Name)
	assert.Equal(t, "get_weather", list[1].Name)
	assert.Equal(t, "Get the weather for a city", list[1].Description)
	assert.Equal(t, "get_weatherArguments", list[1].InputSchema["title"])

	res, err := client.CallTool(ctx, "get_weather", map[string]any{"city": "Paris"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, []llms.TextContent{{Text: "sunny in Paris"}, {Text: "22C"}}, res.Content)

	res, err = client.CallTool(ctx, "broken", nil)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, []llms.TextContent{{Text: "boom"}}, res.Content)
}

func TestConnectInProcess_Registry(t *testing.T) {
	ctx := context.Background()

	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "weather", Version: "v0.0.1"}, nil)
	server.AddTool(&mcpsdk.Tool{
		Name:        "get_weather",
		Description: "Get the weather for a city",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string"},
			},
			"required": []any{"city"},
			"title":    "get_weatherArguments",
		},
	}, func(_ context.Context, _ *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return &mcpsdk.CallToolResult{Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "sunny"}}}, nil
	})

	client, err := mcp.ConnectInProcess(ctx, server)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	specs, err := tools.NewRegistry(client).Specs(ctx)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "get_weather", specs[0].Name())
	assert.Equal(t, []string{"city"}, specs[0].Spec.InputSchema.JSON.Required)

	result, err := tools.NewDispatcher(client).Invoke(ctx, llms.ToolUse{
		ID:    "tu-1",
		Name:  "get_weather",
		Input: map[string]any{"city": "Paris"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tu-1", result.ToolUseID)
	assert.Equal(t, "sunny", result.Text())
}

func TestConnect_HTTP(t *testing.T) {
	ctx := context.Background()

	server := newTestServer()
	handler := mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server { return server }, nil)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := mcp.Connect(ctx, mcp.ServerConfig{URL: srv.URL})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	list, err := client.ListTools(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	res, err := client.CallTool(ctx, "get_weather", map[string]any{"city": "Oslo"})
	require.NoError(t, err)
	assert.Equal(t, "sunny in Oslo", res.Content[0].Text)
}

func TestConnect_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := mcp.Connect(ctx, mcp.ServerConfig{})
	assert.EqualError(t, err, "mcp: server command or url is required")

	_, err = mcp.Connect(ctx, mcp.ServerConfig{Command: "/nonexistent/mcp-server"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mcp: failed to connect to /nonexistent/mcp-server")
}

type fakeSession struct {
	pages   map[string]*mcpsdk.ListToolsResult
	cursors []string
	call    *mcpsdk.CallToolParams
	result  *mcpsdk.CallToolResult
	err     error
	closed  bool
}

func (f *fakeSession) ListTools(_ context.Context, params *mcpsdk.ListToolsParams) (*mcpsdk.ListToolsResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.cursors = append(f.cursors, params.Cursor)
	return f.pages[params.Cursor], nil
}

func (f *fakeSession) CallTool(_ context.Context, params *mcpsdk.CallToolParams) (*mcpsdk.CallToolResult, error) {
	f.call = params
	return f.result, f.err
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func TestClient_ListTools_Pagination(t *testing.T) {
	session := &fakeSession{
		pages: map[string]*mcpsdk.ListToolsResult{
			"": {
				Tools:      []*mcpsdk.Tool{{Name: "a", InputSchema: map[string]any{"type": "object"}}},
				NextCursor: "page2",
			},
			"page2": {
				Tools:      []*mcpsdk.Tool{{Name: "b"}, nil},
				NextCursor: "page3",
			},
			"page3": {
				Tools: []*mcpsdk.Tool{{Name: "c", InputSchema: json.RawMessage(`{"type":"object","title":"c"}`)}},
				// a server repeating a cursor must not loop forever
				NextCursor: "page2",
			},
		},
	}

	client := mcp.NewClient(session)
	list, err := client.ListTools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"", "page2", "page3"}, session.cursors)
	require.Len(t, list, 3)
	assert.Equal(t, map[string]any{"type": "object"}, list[0].InputSchema)
	assert.Nil(t, list[1].InputSchema)
	assert.Equal(t, map[string]any{"type": "object", "title": "c"}, list[2].InputSchema)

	require.NoError(t, client.Close())
	assert.True(t, session.closed)
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	session := &fakeSession{err: errors.New("connection closed")}
	client := mcp.NewClient(session)

	_, err := client.ListTools(ctx)
	assert.EqualError(t, err, "mcp: failed to list tools: connection closed")

	_, err = tools.NewRegistry(client).Discover(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrProviderUnavailable))

	_, err = client.CallTool(ctx, "get_weather", map[string]any{"city": "Paris"})
	assert.EqualError(t, err, `mcp: failed to call tool "get_weather": connection closed`)
	assert.Equal(t, "get_weather", session.call.Name)
	assert.Equal(t, map[string]any{"city": "Paris"}, session.call.Arguments)
}

func TestClient_CallTool_Content(t *testing.T) {
	session := &fakeSession{
		result: &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{
				&mcpsdk.TextContent{Text: "caption"},
				&mcpsdk.ResourceLink{URI: "file:///tmp/report.txt", Name: "report"},
			},
		},
	}

	res, err := mcp.NewClient(session).CallTool(context.Background(), "report", nil)
	require.NoError(t, err)
	require.Len(t, res.Content, 2)
	assert.Equal(t, "caption", res.Content[0].Text)
	assert.JSONEq(t, `{"type":"resource_link","uri":"file:///tmp/report.txt","name":"report"}`, res.Content[1].Text)
	assert.Nil(t, session.call.Arguments)

	session.result = nil
	res, err = mcp.NewClient(session).CallTool(context.Background(), "report", nil)
	require.NoError(t, err)
	assert.Nil(t, res)
}
