package tools

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/xlog"
)

// Registry discovers tools from a provider and converts them to the form
// accepted by the model. It keeps no state between calls.
type Registry struct {
	provider Provider
}

// NewRegistry returns a registry backed by the provider.
func NewRegistry(provider Provider) *Registry {
	return &Registry{provider: provider}
}

// Discover returns the tools currently exposed by the provider.
func (r *Registry) Discover(ctx context.Context) ([]Descriptor, error) {
	started := time.Now()
	defer metricskey.PerfToolDiscovery.MeasureSince(started)

	list, err := r.provider.ListTools(ctx)
	if err != nil {
		return nil, errors.Mark(errors.WithMessage(err, "failed to list tools"), ErrProviderUnavailable)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "discovered",
		"tools", len(list))
	return list, nil
}

// Specs discovers the tools and converts them to model tool specs.
func (r *Registry) Specs(ctx context.Context) ([]llms.ToolSpec, error) {
	list, err := r.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return ToModelSpec(list)
}

// ToModelSpec converts descriptors to tool specs, in order.
// A descriptor whose schema lacks properties or title fails the conversion.
func ToModelSpec(descriptors []Descriptor) ([]llms.ToolSpec, error) {
	specs := make([]llms.ToolSpec, 0, len(descriptors))
	for _, d := range descriptors {
		spec, err := toSpec(d)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func toSpec(d Descriptor) (llms.ToolSpec, error) {
	raw, ok := d.InputSchema["properties"]
	if !ok {
		return llms.ToolSpec{}, errors.Mark(errors.Newf("tool %q: schema has no properties", d.Name), ErrSchema)
	}
	props, ok := raw.(map[string]any)
	if !ok && raw != nil {
		return llms.ToolSpec{}, errors.Mark(errors.Newf("tool %q: schema properties must be an object, got %T", d.Name, raw), ErrSchema)
	}
	if props == nil {
		props = map[string]any{}
	}

	rawTitle, ok := d.InputSchema["title"]
	if !ok {
		return llms.ToolSpec{}, errors.Mark(errors.Newf("tool %q: schema has no title", d.Name), ErrSchema)
	}
	title, ok := rawTitle.(string)
	if !ok {
		return llms.ToolSpec{}, errors.Mark(errors.Newf("tool %q: schema title must be a string, got %T", d.Name, rawTitle), ErrSchema)
	}

	return llms.NewToolSpec(d.Name, d.Description, props, title, required(d.InputSchema["required"])...), nil
}

func required(v any) []string {
	switch typ := v.(type) {
	case []string:
		return typ
	case []any:
		var list []string
		for _, s := range typ {
			if str, ok := s.(string); ok {
				list = append(list, str)
			}
		}
		return list
	}
	return nil
}
