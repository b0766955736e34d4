package llms

import "time"

const (
	// DefaultMaxTokens is the default limit of tokens generated per completion.
	DefaultMaxTokens = 1000
	// DefaultTimeout is the default time limit of a single completion request.
	DefaultTimeout = 60 * time.Second
)

// CallOption is a function that configures a CallOptions.
type CallOption func(*CallOptions)

// CallOptions is the fixed inference configuration of a gateway,
// set once at construction and applied to every request.
type CallOptions struct {
	// Model is the model to use.
	Model string
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int
	// Temperature is the temperature for sampling, between 0 and 1.
	// Zero gives deterministic sampling.
	Temperature float64
	// StopWords is a list of words to stop on.
	StopWords []string
	// Timeout bounds a single request to the model service.
	Timeout time.Duration
}

// NewCallOptions returns the options with defaults applied.
func NewCallOptions(opts ...CallOption) CallOptions {
	o := CallOptions{
		MaxTokens: DefaultMaxTokens,
		Timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithModel specifies which model name to use.
func WithModel(model string) CallOption {
	return func(o *CallOptions) {
		o.Model = model
	}
}

// WithMaxTokens specifies the max number of tokens to generate.
func WithMaxTokens(maxTokens int) CallOption {
	return func(o *CallOptions) {
		if maxTokens > 0 {
			o.MaxTokens = maxTokens
		}
	}
}

// WithTemperature specifies the model temperature, a hyperparameter that
// regulates the randomness, or creativity, of the AI's responses.
func WithTemperature(temperature float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = temperature
	}
}

// WithStopWords specifies a list of words to stop generation on.
func WithStopWords(stopWords []string) CallOption {
	return func(o *CallOptions) {
		o.StopWords = stopWords
	}
}

// WithTimeout specifies the time limit of a single request.
func WithTimeout(timeout time.Duration) CallOption {
	return func(o *CallOptions) {
		if timeout > 0 {
			o.Timeout = timeout
		}
	}
}
