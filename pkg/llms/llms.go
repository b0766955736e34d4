package llms

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrGateway is the kind of errors returned by a Model when the model service
// could not be reached, timed out, or returned a malformed response.
var ErrGateway = errors.New("model gateway failure")

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderAnthropic is the Anthropic Messages API.
	ProviderAnthropic ProviderType = "ANTHROPIC"
	// ProviderBedrock is the Amazon Bedrock Converse API.
	ProviderBedrock ProviderType = "BEDROCK"
)

// StopReason is the reason the model stopped generating output.
type StopReason string

const (
	StopReasonToolUse         StopReason = "tool_use"
	StopReasonMaxTokens       StopReason = "max_tokens"
	StopReasonStopSequence    StopReason = "stop_sequence"
	StopReasonContentFiltered StopReason = "content_filtered"
	StopReasonEndTurn         StopReason = "end_turn"
)

// Known reports whether the stop reason is one the orchestrator can act on.
func (r StopReason) Known() bool {
	switch r {
	case StopReasonToolUse, StopReasonMaxTokens, StopReasonStopSequence,
		StopReasonContentFiltered, StopReasonEndTurn:
		return true
	}
	return false
}

//go:generate mockgen -destination=../../mocks/mockllms/llm_mock.gen.go -package mockllms github.com/effective-security/mcpchat/pkg/llms Model

// Model is the gateway to a generative model service.
type Model interface {
	// GetName returns the model identifier.
	GetName() string
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// Complete sends the whole conversation and the tool list to the model
	// and returns its next response. Every call is exactly one request to
	// the model service, there is no caching and no retry.
	Complete(ctx context.Context, messages []Message, tools []ToolSpec) (*CompletionResponse, error)
}

// Usage reports the tokens consumed by a single completion.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// CompletionResponse is the response returned by a Complete call.
type CompletionResponse struct {
	StopReason StopReason     `json:"stop_reason"`
	Content    []ContentBlock `json:"content"`
	Usage      Usage          `json:"usage"`
}

// ToolUses returns the tool use blocks of the response, in order.
func (r *CompletionResponse) ToolUses() []ToolUse {
	var list []ToolUse
	for _, b := range r.Content {
		if tu, ok := b.(ToolUse); ok {
			list = append(list, tu)
		}
	}
	return list
}

// ToolSpec is a tool description in the form accepted by the model service:
//
//	{"toolSpec": {"name": ..., "description": ..., "inputSchema": {"json": {...}}}}
type ToolSpec struct {
	Spec ToolSpecification `json:"toolSpec"`
}

// ToolSpecification describes one tool.
type ToolSpecification struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema ToolInputSchema `json:"inputSchema"`
}

// ToolInputSchema wraps the JSON schema of the tool input.
type ToolInputSchema struct {
	JSON ToolSchemaJSON `json:"json"`
}

// ToolSchemaJSON is the object schema of the tool input.
type ToolSchemaJSON struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Title      string         `json:"title"`
	Required   []string       `json:"required,omitempty"`
}

// NewToolSpec returns a tool spec for an object input schema.
func NewToolSpec(name, description string, properties map[string]any, title string, required ...string) ToolSpec {
	return ToolSpec{
		Spec: ToolSpecification{
			Name:        name,
			Description: description,
			InputSchema: ToolInputSchema{
				JSON: ToolSchemaJSON{
					Type:       "object",
					Properties: properties,
					Title:      title,
					Required:   required,
				},
			},
		},
	}
}

// Name returns the tool name.
func (s ToolSpec) Name() string {
	return s.Spec.Name
}

// Schema returns the input schema as a generic JSON object.
func (s ToolSpec) Schema() map[string]any {
	js := s.Spec.InputSchema.JSON
	m := map[string]any{
		"type":       js.Type,
		"properties": js.Properties,
		"title":      js.Title,
	}
	if len(js.Required) > 0 {
		m["required"] = js.Required
	}
	return m
}
