package assistants

import (
	"github.com/effective-security/mcpchat/store"
)

const (
	// DefaultMaxTurns is the number of tool passes allowed per query.
	DefaultMaxTurns = 10
	// DefaultInstructions is sent as the first user message of every query.
	DefaultInstructions = "You are a helpful assistant. Use tools only when necessary."
)

// Option is a function that can be used to modify the behavior of the Orchestrator Config.
type Option func(*Config)

type Config struct {
	// MaxTurns is the maximum number of tool passes per query.
	MaxTurns int
	// Instructions is the message sent before the query.
	Instructions string
	// Callback receives query and tool events.
	Callback Callback
	// History records resolved queries, optional.
	History store.HistoryStore
	// SessionID is the history key.
	SessionID string
}

// NewConfig returns the config with defaults and the options applied.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		MaxTurns:     DefaultMaxTurns,
		Instructions: DefaultInstructions,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.MaxTurns < 1 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	return cfg
}

// WithMaxTurns sets the turn budget, values below 1 keep the default.
func WithMaxTurns(maxTurns int) Option {
	return func(o *Config) {
		o.MaxTurns = maxTurns
	}
}

// WithInstructions sets the instructions message, empty keeps the default.
func WithInstructions(instructions string) Option {
	return func(o *Config) {
		if instructions != "" {
			o.Instructions = instructions
		}
	}
}

// WithCallback allows setting a custom Callback Handler.
func WithCallback(callbackHandler Callback) Option {
	return func(o *Config) {
		o.Callback = callbackHandler
	}
}

// WithHistory records every resolved query in the store under the session id.
func WithHistory(history store.HistoryStore, sessionID string) Option {
	return func(o *Config) {
		o.History = history
		o.SessionID = sessionID
	}
}
