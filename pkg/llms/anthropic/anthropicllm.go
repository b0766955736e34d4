package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "anthropic")

var (
	ErrMissingToken           = errors.New("anthropic: missing API key, set it in the ANTHROPIC_API_KEY environment variable")
	ErrUnsupportedContentType = errors.New("anthropic: unsupported content type")
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
)

// stopReasons maps Messages API stop reasons to model stop reasons
var stopReasons = map[anthropic.StopReason]llms.StopReason{
	anthropic.StopReasonEndTurn:        llms.StopReasonEndTurn,
	anthropic.StopReasonToolUse:        llms.StopReasonToolUse,
	anthropic.StopReasonMaxTokens:      llms.StopReasonMaxTokens,
	anthropic.StopReasonStopSequence:   llms.StopReasonStopSequence,
	anthropic.StopReason("refusal"):    llms.StopReasonContentFiltered,
	anthropic.StopReason("pause_turn"): llms.StopReasonEndTurn,
}

type LLM struct {
	Client  *anthropic.Client
	Options *Options
}

var _ llms.Model = (*LLM)(nil)

// New creates a new Anthropic LLM client using the official Anthropic SDK.
//
// If no token is provided via options, it will attempt to read the API key
// from the ANTHROPIC_API_KEY environment variable.
//
// Example usage:
//
//	llm, err := anthropic.New(
//	    anthropic.WithToken("your-api-key"),
//	    anthropic.WithModel("claude-3-5-sonnet-20241022"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := llm.Complete(ctx, messages, tools)
func New(opts ...Option) (*LLM, error) {
	options := &Options{
		Token:      os.Getenv(TokenEnvVarName),
		BaseURL:    DefaultBaseURL,
		HttpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(options)
	}

	if len(options.Token) == 0 {
		return nil, ErrMissingToken
	}
	if options.Model == "" {
		return nil, errors.New("anthropic: model is required")
	}

	options.Call = llms.NewCallOptions(
		llms.WithModel(options.Model),
		llms.WithMaxTokens(options.MaxTokens),
		llms.WithTemperature(options.Temperature),
		llms.WithTimeout(options.Timeout),
	)

	c, err := newClient(options)
	if err != nil {
		return nil, errors.Wrap(err, "anthropic: failed to create client")
	}
	return &LLM{
		Client:  c,
		Options: options,
	}, nil
}

func newClient(options *Options) (*anthropic.Client, error) {
	sdkOpts := []option.RequestOption{
		option.WithAPIKey(options.Token),
		// every Complete call is a single request
		option.WithMaxRetries(0),
	}

	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
	}

	if options.HttpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HttpClient))
	}

	if options.AnthropicBetaHeader != "" {
		sdkOpts = append(sdkOpts, option.WithHeader("anthropic-beta", options.AnthropicBetaHeader))
	}

	client := anthropic.NewClient(sdkOpts...)

	return &client, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.Options.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderAnthropic
}

// Complete implements the Model interface.
// Any failure is marked with llms.ErrGateway.
func (o *LLM) Complete(ctx context.Context, messages []llms.Message, tools []llms.ToolSpec) (*llms.CompletionResponse, error) {
	params, err := NewMessageParams(messages, tools, o.Options.Call)
	if err != nil {
		return nil, errors.Mark(err, llms.ErrGateway)
	}

	if o.Options.Call.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Options.Call.Timeout)
		defer cancel()
	}

	result, err := o.Client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "anthropic: failed to create message"), llms.ErrGateway)
	}

	resp, err := ParseMessage(result)
	if err != nil {
		return nil, errors.Mark(err, llms.ErrGateway)
	}
	return resp, nil
}

// NewMessageParams builds the request for the conversation and tools.
func NewMessageParams(messages []llms.Message, tools []llms.ToolSpec, opts llms.CallOptions) (anthropic.MessageNewParams, error) {
	sdkMessages, err := ProcessMessages(messages)
	if err != nil {
		return anthropic.MessageNewParams{}, errors.WithMessage(err, "anthropic: failed to process messages")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(opts.Model),
		Messages:    sdkMessages,
		MaxTokens:   values.NumbersCoalesce(int64(opts.MaxTokens), llms.DefaultMaxTokens),
		Temperature: anthropic.Float(opts.Temperature),
	}

	if len(opts.StopWords) > 0 {
		params.StopSequences = opts.StopWords
	}

	if sdkTools := ToTools(tools); len(sdkTools) > 0 {
		params.Tools = sdkTools
	}
	return params, nil
}

// ParseMessage converts the API response to a completion response.
func ParseMessage(result *anthropic.Message) (*llms.CompletionResponse, error) {
	if result == nil {
		return nil, errors.New("anthropic: empty response")
	}
	if result.StopReason == "" {
		return nil, errors.New("anthropic: response has no stop reason")
	}

	stopReason, ok := stopReasons[result.StopReason]
	if !ok {
		stopReason = llms.StopReason(result.StopReason)
	}

	resp := &llms.CompletionResponse{
		StopReason: stopReason,
		Content:    make([]llms.ContentBlock, 0, len(result.Content)),
		Usage: llms.Usage{
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
		},
	}

	for _, contentBlock := range result.Content {
		switch content := contentBlock.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content = append(resp.Content, llms.TextContent{Text: content.Text})
		case anthropic.ToolUseBlock:
			var input map[string]any
			if len(content.Input) > 0 {
				if err := json.Unmarshal(content.Input, &input); err != nil {
					return nil, errors.Wrap(err, "anthropic: failed to unmarshal tool use arguments")
				}
			}
			resp.Content = append(resp.Content, llms.ToolUse{
				ID:    content.ID,
				Name:  content.Name,
				Input: input,
			})
		default:
			logger.KV(xlog.DEBUG,
				"status", "skipped_content_block",
				"type", contentBlock.Type)
		}
	}
	return resp, nil
}

// ToTools converts tool specs to Anthropic SDK tool parameters.
// Returns nil if no tools are provided.
func ToTools(tools []llms.ToolSpec) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	sdkTools := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		js := tool.Spec.InputSchema.JSON
		inputSchema := anthropic.ToolInputSchemaParam{
			Type:       "object",
			Properties: js.Properties,
		}
		if len(js.Required) > 0 {
			inputSchema.Required = js.Required
		}

		sdkTools[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Spec.Name,
				Description: anthropic.String(tool.Spec.Description),
				InputSchema: inputSchema,
			},
		}
	}
	return sdkTools
}

// ProcessMessages converts the conversation to Anthropic SDK message parameters.
// The Messages API requires alternating roles, so adjacent messages with the
// same role are sent as one message.
func ProcessMessages(messages []llms.Message) ([]anthropic.MessageParam, error) {
	merged := llms.MergeConsecutiveRoles(messages)
	chatMessages := make([]anthropic.MessageParam, 0, len(merged))
	for _, msg := range merged {
		contents, err := toContentBlocks(msg)
		if err != nil {
			return nil, err
		}
		switch msg.Role {
		case llms.RoleUser:
			chatMessages = append(chatMessages, anthropic.NewUserMessage(contents...))
		case llms.RoleAssistant:
			chatMessages = append(chatMessages, anthropic.NewAssistantMessage(contents...))
		default:
			return nil, errors.WithMessagef(llms.ErrUnexpectedRole, "anthropic: %q", msg.Role)
		}
	}
	return chatMessages, nil
}

func toContentBlocks(msg llms.Message) ([]anthropic.ContentBlockParamUnion, error) {
	contents := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
	for _, part := range msg.Content {
		switch p := part.(type) {
		case llms.TextContent:
			contents = append(contents, anthropic.NewTextBlock(p.Text))
		case llms.ToolUse:
			input := p.Input
			if input == nil {
				input = map[string]any{}
			}
			contents = append(contents, anthropic.NewToolUseBlock(p.ID, input, p.Name))
		case llms.ToolResult:
			texts := make([]string, 0, len(p.Content))
			for _, c := range p.Content {
				texts = append(texts, c.Text)
			}
			contents = append(contents, anthropic.NewToolResultBlock(p.ToolUseID, strings.Join(texts, "\n"), false))
		default:
			return nil, errors.WithMessagef(ErrUnsupportedContentType, "%T", part)
		}
	}
	return contents, nil
}
