package assistants

import (
	"context"
	"fmt"
	"io"

	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// Callback receives the events of a query.
type Callback interface {
	tools.Callback

	OnQueryStart(ctx context.Context, query string)
	OnQueryEnd(ctx context.Context, result *Result)
	OnQueryError(ctx context.Context, query string, err error)
	OnLLMCallStart(ctx context.Context, model llms.Model, messages []llms.Message)
	OnLLMCallEnd(ctx context.Context, model llms.Model, resp *llms.CompletionResponse)
}

// NoopCallback does nothing.
type NoopCallback struct{}

func NewNoopCallback() *NoopCallback {
	return &NoopCallback{}
}

var _ Callback = (*NoopCallback)(nil)

func (l *NoopCallback) OnQueryStart(context.Context, string)                               {}
func (l *NoopCallback) OnQueryEnd(context.Context, *Result)                                {}
func (l *NoopCallback) OnQueryError(context.Context, string, error)                        {}
func (l *NoopCallback) OnLLMCallStart(context.Context, llms.Model, []llms.Message)         {}
func (l *NoopCallback) OnLLMCallEnd(context.Context, llms.Model, *llms.CompletionResponse) {}
func (l *NoopCallback) OnToolStart(context.Context, llms.ToolUse)                          {}
func (l *NoopCallback) OnToolEnd(context.Context, llms.ToolUse, llms.ToolResult)           {}
func (l *NoopCallback) OnToolError(context.Context, llms.ToolUse, error)                   {}

// PrinterCallback is a callback handler that prints to the Writer.
type PrinterCallback struct {
	Out io.Writer
}

func NewPrinterCallback(out io.Writer) *PrinterCallback {
	return &PrinterCallback{Out: out}
}

var _ Callback = (*PrinterCallback)(nil)

func (l *PrinterCallback) OnQueryStart(_ context.Context, query string) {
	fmt.Fprintf(l.Out, "Query Start: %s\n", query)
}

func (l *PrinterCallback) OnQueryEnd(_ context.Context, result *Result) {
	fmt.Fprintf(l.Out, "Query End: %s, turns: %d\n", result.StopReason, result.Turns)
}

func (l *PrinterCallback) OnQueryError(_ context.Context, query string, err error) {
	fmt.Fprintf(l.Out, "Query Error: %s: %s\n", query, err.Error())
}

func (l *PrinterCallback) OnLLMCallStart(_ context.Context, model llms.Model, messages []llms.Message) {
	fmt.Fprintf(l.Out, "LLM Call: %s, messages: %d\n", model.GetName(), len(messages))
}

func (l *PrinterCallback) OnLLMCallEnd(_ context.Context, model llms.Model, resp *llms.CompletionResponse) {
	fmt.Fprintf(l.Out, "LLM Response: %s, stop reason: %s\n", model.GetName(), resp.StopReason)
}

func (l *PrinterCallback) OnToolStart(_ context.Context, use llms.ToolUse) {
	fmt.Fprintf(l.Out, "Tool Start: %s\n", use.Name)
	fmt.Fprintf(l.Out, "Input: %s\n", use.InputJSON())
}

func (l *PrinterCallback) OnToolEnd(_ context.Context, use llms.ToolUse, result llms.ToolResult) {
	fmt.Fprintf(l.Out, "Tool End: %s\n", use.Name)
	fmt.Fprintf(l.Out, "Output: %s\n", result.Text())
}

func (l *PrinterCallback) OnToolError(_ context.Context, use llms.ToolUse, err error) {
	fmt.Fprintf(l.Out, "Tool Error: %s: %s\n", use.Name, err.Error())
}

// PackageLoggerCallback is a callback handler that prints to the logger.
type PackageLoggerCallback struct {
	logger *xlog.PackageLogger
}

func NewPackageLoggerCallback(logger *xlog.PackageLogger) *PackageLoggerCallback {
	return &PackageLoggerCallback{logger: logger}
}

var _ Callback = (*PackageLoggerCallback)(nil)

func (l *PackageLoggerCallback) OnQueryStart(ctx context.Context, query string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "query_start",
		"query", slices.StringUpto(query, 64),
	)
}

func (l *PackageLoggerCallback) OnQueryEnd(ctx context.Context, result *Result) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "query_end",
		"stop_reason", result.StopReason,
		"turns", result.Turns,
		"truncated", result.Truncated,
	)
}

func (l *PackageLoggerCallback) OnQueryError(ctx context.Context, query string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "query_error",
		"query", slices.StringUpto(query, 64),
		"err", err.Error(),
	)
}

func (l *PackageLoggerCallback) OnLLMCallStart(ctx context.Context, model llms.Model, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"model", model.GetName(),
		"messages", len(messages),
	)
}

func (l *PackageLoggerCallback) OnLLMCallEnd(ctx context.Context, model llms.Model, resp *llms.CompletionResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"model", model.GetName(),
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
}

func (l *PackageLoggerCallback) OnToolStart(ctx context.Context, use llms.ToolUse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"tool", use.Name,
		"input", use.InputJSON(),
	)
}

func (l *PackageLoggerCallback) OnToolEnd(ctx context.Context, use llms.ToolUse, result llms.ToolResult) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"tool", use.Name,
		"output", slices.StringUpto(result.Text(), 64),
	)
}

func (l *PackageLoggerCallback) OnToolError(ctx context.Context, use llms.ToolUse, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"tool", use.Name,
		"err", err.Error(),
	)
}
