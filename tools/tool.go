package tools

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
)

//go:generate mockgen -source=tool.go -destination=../mocks/mocktools/tools_mock.gen.go  -package mocktools

var (
	// ErrProviderUnavailable is the kind of errors returned when the tool
	// provider cannot be reached or fails to list its tools.
	ErrProviderUnavailable = errors.New("tool provider unavailable")
	// ErrSchema is the kind of errors returned when a tool descriptor has an
	// input schema that cannot be converted for the model.
	ErrSchema = errors.New("invalid tool schema")
	// ErrToolExecution is the kind of errors returned when a tool invocation fails.
	ErrToolExecution = errors.New("tool execution failed")
)

// Descriptor describes a tool as advertised by the provider.
type Descriptor struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	// InputSchema is the JSON schema object of the tool input.
	InputSchema map[string]any `json:"inputSchema" yaml:"inputSchema"`
}

// CallResult is the content returned by a tool invocation.
type CallResult struct {
	Content []llms.TextContent
	// IsError is set when the provider reports the tool itself failed.
	IsError bool
}

// Provider is a source of tools, for example an MCP server session.
type Provider interface {
	// ListTools returns the tools currently exposed by the provider.
	ListTools(ctx context.Context) ([]Descriptor, error)
	// CallTool invokes the tool by name with the arguments.
	CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error)
}

// Callback receives tool invocation events.
type Callback interface {
	OnToolStart(ctx context.Context, use llms.ToolUse)
	OnToolEnd(ctx context.Context, use llms.ToolUse, result llms.ToolResult)
	OnToolError(ctx context.Context, use llms.ToolUse, err error)
}
