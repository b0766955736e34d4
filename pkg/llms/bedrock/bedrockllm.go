package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llms/bedrock/internal/bedrockclient"
)

// LLM is a Bedrock Converse implementation of llms.Model.
type LLM struct {
	modelID string
	opts    llms.CallOptions
	client  *bedrockclient.Client
}

var _ llms.Model = (*LLM)(nil)

// New creates a new Bedrock LLM implementation.
func New(opts ...Option) (*LLM, error) {
	o, c, err := newClient(opts...)
	if err != nil {
		return nil, err
	}
	return &LLM{
		client:  c,
		modelID: o.modelID,
		opts: llms.NewCallOptions(
			llms.WithModel(o.modelID),
			llms.WithMaxTokens(o.maxTokens),
			llms.WithTemperature(o.temperature),
			llms.WithTimeout(o.timeout),
		),
	}, nil
}

func newClient(opts ...Option) (*options, *bedrockclient.Client, error) {
	options := &options{
		modelID: DefaultModel,
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.modelID == "" {
		return options, nil, errors.New("bedrock: model is required")
	}

	if options.client == nil {
		var loadOpts []func(*config.LoadOptions) error
		if options.region != "" {
			loadOpts = append(loadOpts, config.WithRegion(options.region))
		}
		cfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return options, nil, errors.Wrap(err, "bedrock: failed to load AWS config")
		}
		options.client = bedrockruntime.NewFromConfig(cfg)
	}

	return options, bedrockclient.NewClient(options.client), nil
}

// GetName implements the Model interface.
func (l *LLM) GetName() string {
	return l.modelID
}

// GetProviderType implements the Model interface.
func (l *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderBedrock
}

// Complete implements llms.Model.
func (l *LLM) Complete(ctx context.Context, messages []llms.Message, tools []llms.ToolSpec) (*llms.CompletionResponse, error) {
	return l.client.Converse(ctx, l.modelID, messages, tools, l.opts)
}
