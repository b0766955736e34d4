package tools

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// Dispatcher executes tool use requests against a provider.
type Dispatcher struct {
	provider Provider
	callback Callback
}

// NewDispatcher returns a dispatcher backed by the provider.
func NewDispatcher(provider Provider) *Dispatcher {
	return &Dispatcher{provider: provider}
}

// WithCallback sets the handler notified of tool invocations.
func (d *Dispatcher) WithCallback(cb Callback) *Dispatcher {
	d.callback = cb
	return d
}

// Invoke calls the requested tool and returns its result correlated by the
// tool use id. The content returned by the provider is passed through verbatim.
func (d *Dispatcher) Invoke(ctx context.Context, use llms.ToolUse) (llms.ToolResult, error) {
	if d.callback != nil {
		d.callback.OnToolStart(ctx, use)
	}

	started := time.Now()
	res, err := d.provider.CallTool(ctx, use.Name, use.Input)
	metricskey.PerfToolCall.MeasureSince(started, use.Name)

	if err == nil && res != nil && res.IsError {
		err = errors.Newf("tool %s reported an error: %s", use.Name,
			slices.StringUpto(llms.ToolResult{Content: res.Content}.Text(), 256))
	}
	if err == nil && res == nil {
		err = errors.Newf("tool %s returned no response", use.Name)
	}
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, use.Name)
		err = errors.Mark(errors.WithMessagef(err, "failed to call tool %s", use.Name), ErrToolExecution)

		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_failed",
			"tool", use.Name,
			"tool_use_id", use.ID,
			"err", err.Error())

		if d.callback != nil {
			d.callback.OnToolError(ctx, use, err)
		}
		return llms.ToolResult{}, err
	}
	metricskey.StatsToolCallsSucceeded.IncrCounter(1, use.Name)

	result := llms.ToolResult{
		ToolUseID: use.ID,
		Content:   append([]llms.TextContent(nil), res.Content...),
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "tool_called",
		"tool", use.Name,
		"tool_use_id", use.ID,
		"result", slices.StringUpto(result.Text(), 64))

	if d.callback != nil {
		d.callback.OnToolEnd(ctx, use, result)
	}
	return result, nil
}
