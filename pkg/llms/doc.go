// Package llms provides the message model shared by the model gateways and the
// orchestrator: roles, the closed set of content blocks, conversations,
// tool specifications and completion responses.
//
// Each subpackage implements the Model interface for one provider.
// The internal directories within these subpackages contain provider-specific
// wire conversions.
//
// The `llms.go` file contains the Model interface and the response types.
//
// The `options.go` file provides the options shared by the gateways.
package llms
