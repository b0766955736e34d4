// Package llmfactory loads the client configuration and creates the model
// gateways for the configured providers (Bedrock, Anthropic).
package llmfactory
