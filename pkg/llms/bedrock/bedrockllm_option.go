package bedrock

import (
	"time"

	"github.com/effective-security/mcpchat/pkg/llms/bedrock/internal/bedrockclient"
)

// Models hosted by Bedrock that support tool use through Converse.
const (
	ModelAnthropicClaude3Sonnet  = "anthropic.claude-3-sonnet-20240229-v1:0"
	ModelAnthropicClaude3Haiku   = "anthropic.claude-3-haiku-20240307-v1:0"
	ModelAnthropicClaude35Sonnet = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	ModelAmazonNovaPro           = "amazon.nova-pro-v1:0"

	DefaultModel = ModelAnthropicClaude3Sonnet
)

// ConverseAPI is the subset of the Bedrock runtime client used by the LLM.
type ConverseAPI = bedrockclient.ConverseAPI

// Option is an option for the Bedrock LLM.
type Option func(*options)

type options struct {
	modelID     string
	region      string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	client      ConverseAPI
}

// WithModel allows setting a custom model id.
func WithModel(modelID string) Option {
	return func(o *options) {
		o.modelID = modelID
	}
}

// WithRegion sets the AWS region used when the client is created from the
// default AWS configuration.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithMaxTokens sets the limit of generated tokens per request.
func WithMaxTokens(maxTokens int) Option {
	return func(o *options) {
		o.maxTokens = maxTokens
	}
}

// WithTemperature sets the sampling temperature, the default is 0.
func WithTemperature(temperature float64) Option {
	return func(o *options) {
		o.temperature = temperature
	}
}

// WithTimeout bounds every request to the model service.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithClient allows setting a custom client, for example *bedrockruntime.Client.
func WithClient(client ConverseAPI) Option {
	return func(o *options) {
		o.client = client
	}
}
