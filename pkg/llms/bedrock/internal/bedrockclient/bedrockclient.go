package bedrockclient

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "bedrockclient")

// ConverseAPI is the subset of the Bedrock runtime client used by the gateway.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client is a Bedrock client.
type Client struct {
	api ConverseAPI
}

// NewClient creates a new Bedrock client.
func NewClient(api ConverseAPI) *Client {
	return &Client{
		api: api,
	}
}

func getProvider(modelID string) string {
	// Handle Inference Profiles (e.g., "us.anthropic.claude-3-5-sonnet-20241022-v2:0")
	// and direct model IDs (e.g., "anthropic.claude-3-sonnet-20240229-v1:0")
	parts := strings.Split(modelID, ".")
	if len(parts) >= 2 {
		// Check if first part is a region (like "us", "eu", etc.)
		if len(parts[0]) == 2 && strings.ToLower(parts[0]) == parts[0] {
			return parts[1]
		}
		return parts[0]
	}
	return parts[0]
}

// Converse sends the conversation to the model and returns its response.
// Every failure is marked with llms.ErrGateway.
func (c *Client) Converse(ctx context.Context,
	modelID string,
	messages []llms.Message,
	tools []llms.ToolSpec,
	options llms.CallOptions,
) (*llms.CompletionResponse, error) {
	input, err := buildConverseInput(modelID, messages, tools, options)
	if err != nil {
		return nil, errors.Mark(err, llms.ErrGateway)
	}

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "converse",
		"model", modelID,
		"provider", getProvider(modelID),
		"messages", len(input.Messages),
		"tools", len(tools))

	out, err := c.api.Converse(ctx, input)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "bedrock: converse failed"), llms.ErrGateway)
	}

	resp, err := parseConverseOutput(out)
	if err != nil {
		return nil, errors.Mark(err, llms.ErrGateway)
	}
	return resp, nil
}

func buildConverseInput(modelID string, messages []llms.Message, tools []llms.ToolSpec, options llms.CallOptions) (*bedrockruntime.ConverseInput, error) {
	msgs, err := toConverseMessages(messages)
	if err != nil {
		return nil, err
	}
	toolConfig, err := toToolConfiguration(tools)
	if err != nil {
		return nil, err
	}
	return &bedrockruntime.ConverseInput{
		ModelId:         aws.String(modelID),
		Messages:        msgs,
		InferenceConfig: toInferenceConfiguration(options),
		ToolConfig:      toolConfig,
	}, nil
}
