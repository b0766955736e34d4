package assistants

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/mcpchat/store"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// Transcript notices
const (
	NoticeMaxTokens       = "[Max tokens reached, ending conversation.]"
	NoticeStopSequence    = "[Stop sequence reached, ending conversation.]"
	NoticeContentFiltered = "[Content filtered, ending conversation.]"
	NoticeMaxTurns        = "\n[Max turns reached, ending conversation.]"
)

var notices = map[llms.StopReason]string{
	llms.StopReasonMaxTokens:       NoticeMaxTokens,
	llms.StopReasonStopSequence:    NoticeStopSequence,
	llms.StopReasonContentFiltered: NoticeContentFiltered,
}

// ToolSource provides the tool list sent with every model request.
type ToolSource interface {
	Specs(ctx context.Context) ([]llms.ToolSpec, error)
}

// ToolInvoker executes a tool use request.
type ToolInvoker interface {
	Invoke(ctx context.Context, use llms.ToolUse) (llms.ToolResult, error)
}

// Result is the outcome of a resolved query.
type Result struct {
	Query string
	// Transcript is the text returned to the user.
	Transcript string
	// StopReason is the stop reason of the last model response.
	StopReason llms.StopReason
	// Turns is the number of tool passes.
	Turns int
	// Truncated is set when the turn budget ended the query.
	Truncated bool
	// Messages is the conversation sent to the model.
	Messages []llms.Message
}

// Orchestrator resolves queries with a model and the tools of a provider.
// It is not safe for concurrent use.
type Orchestrator struct {
	llm        llms.Model
	registry   ToolSource
	dispatcher ToolInvoker
	cfg        *Config
}

// NewOrchestrator returns an orchestrator that discovers and calls the
// tools of the provider on every query.
func NewOrchestrator(model llms.Model, provider tools.Provider, opts ...Option) *Orchestrator {
	cfg := NewConfig(opts...)
	dispatcher := tools.NewDispatcher(provider)
	if cfg.Callback != nil {
		dispatcher = dispatcher.WithCallback(cfg.Callback)
	}
	return NewOrchestratorWithTools(model, tools.NewRegistry(provider), dispatcher, opts...)
}

// NewOrchestratorWithTools returns an orchestrator with explicit tool source and invoker.
func NewOrchestratorWithTools(model llms.Model, registry ToolSource, dispatcher ToolInvoker, opts ...Option) *Orchestrator {
	return &Orchestrator{
		llm:        model,
		registry:   registry,
		dispatcher: dispatcher,
		cfg:        NewConfig(opts...),
	}
}

// Config returns the orchestrator configuration.
func (o *Orchestrator) Config() Config {
	return *o.cfg
}

// ProcessQuery resolves the query and returns its transcript.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query string) (string, error) {
	res, err := o.Run(ctx, query)
	if err != nil {
		return "", err
	}
	return res.Transcript, nil
}

// Run resolves the query. Errors of the tool provider, the model gateway and
// the tools are returned as is, reaching the turn limit is not an error.
func (o *Orchestrator) Run(ctx context.Context, query string) (*Result, error) {
	modelName := o.llm.GetName()
	started := time.Now()
	defer metricskey.PerfQuery.MeasureSince(started, modelName)

	cb := o.cfg.Callback
	if cb != nil {
		cb.OnQueryStart(ctx, query)
	}

	res, err := o.run(ctx, query)
	if err != nil {
		metricskey.StatsQueriesFailed.IncrCounter(1, modelName)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "query_failed",
			"model", modelName,
			"err", err.Error())
		if cb != nil {
			cb.OnQueryError(ctx, query, err)
		}
		return nil, err
	}

	metricskey.StatsQueriesResolved.IncrCounter(1, string(res.StopReason))
	if res.Truncated {
		metricskey.StatsQueriesTruncated.IncrCounter(1, modelName)
	}
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "query_resolved",
		"model", modelName,
		"stop_reason", res.StopReason,
		"turns", res.Turns,
		"truncated", res.Truncated,
		"elapsed", time.Since(started).String())

	o.record(ctx, res)
	if cb != nil {
		cb.OnQueryEnd(ctx, res)
	}
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, query string) (*Result, error) {
	conv, err := llms.NewConversation(
		llms.NewTextMessage(llms.RoleUser, o.cfg.Instructions),
		llms.NewTextMessage(llms.RoleUser, query),
	)
	if err != nil {
		return nil, err
	}

	specs, err := o.registry.Specs(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := o.complete(ctx, conv, specs)
	if err != nil {
		return nil, err
	}

	res := &Result{Query: query}
	var lines []string
	for {
		res.StopReason = resp.StopReason

		switch resp.StopReason {
		case llms.StopReasonEndTurn:
			text, _ := llms.FirstText(resp.Content)
			lines = append(lines, text)
			if text != "" {
				if err = conv.Append(llms.NewTextMessage(llms.RoleAssistant, text)); err != nil {
					return nil, err
				}
			}
			return o.resolve(res, conv, lines), nil

		case llms.StopReasonMaxTokens, llms.StopReasonStopSequence, llms.StopReasonContentFiltered:
			lines = append(lines, notices[resp.StopReason])
			return o.resolve(res, conv, lines), nil

		case llms.StopReasonToolUse:
			lines, err = o.processToolUse(ctx, conv, resp, lines)
			if err != nil {
				return nil, err
			}
			res.Turns++
			if res.Turns >= o.cfg.MaxTurns {
				logger.ContextKV(ctx, xlog.DEBUG,
					"status", "max_turns_reached",
					"turns", res.Turns)
				lines = append(lines, NoticeMaxTurns)
				res.Truncated = true
				return o.resolve(res, conv, lines), nil
			}

			resp, err = o.complete(ctx, conv, specs)
			if err != nil {
				return nil, err
			}

		default:
			return nil, errors.Mark(
				errors.Newf("unknown stop reason %q", string(resp.StopReason)),
				llms.ErrGateway)
		}
	}
}

// processToolUse walks the response blocks in order until the first tool
// use is dispatched, later blocks belong to a superseded response.
func (o *Orchestrator) processToolUse(ctx context.Context, conv *llms.Conversation, resp *llms.CompletionResponse, lines []string) ([]string, error) {
	for i, block := range resp.Content {
		switch b := block.(type) {
		case llms.TextContent:
			lines = append(lines, fmt.Sprintf("[Thinking: %s]", b.Text))
			if err := conv.Append(llms.NewTextMessage(llms.RoleAssistant, b.Text)); err != nil {
				return nil, err
			}

		case llms.ToolUse:
			if err := conv.Append(llms.NewToolUseMessage(b)); err != nil {
				return nil, errors.Mark(err, llms.ErrGateway)
			}
			result, err := o.dispatcher.Invoke(ctx, b)
			if err != nil {
				return nil, err
			}
			lines = append(lines, fmt.Sprintf("[Calling tool %s with args %s]", b.Name, b.InputJSON()))

			if err = conv.Append(llms.NewToolResultMessage(result)); err != nil {
				return nil, err
			}

			if dropped := len(resp.Content) - i - 1; dropped > 0 {
				logger.ContextKV(ctx, xlog.DEBUG,
					"status", "blocks_dropped",
					"tool", b.Name,
					"count", dropped)
			}
			return lines, nil

		case llms.ToolResult:
			return nil, errors.Mark(
				errors.Newf("unexpected tool result in model response: %s", b.ToolUseID),
				llms.ErrGateway)

		default:
			return nil, errors.Mark(
				errors.WithMessagef(llms.ErrUnsupportedContent, "%T", block),
				llms.ErrGateway)
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "tool_use_without_tool",
		"blocks", len(resp.Content))
	return lines, nil
}

func (o *Orchestrator) complete(ctx context.Context, conv *llms.Conversation, specs []llms.ToolSpec) (*llms.CompletionResponse, error) {
	provider := string(o.llm.GetProviderType())
	modelName := o.llm.GetName()
	messages := conv.Messages()

	cb := o.cfg.Callback
	if cb != nil {
		cb.OnLLMCallStart(ctx, o.llm, messages)
	}

	started := time.Now()
	resp, err := o.llm.Complete(ctx, messages, specs)
	metricskey.PerfLLMCall.MeasureSince(started, provider)
	if err != nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, provider, modelName)
		return nil, err
	}
	if resp == nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, provider, modelName)
		return nil, errors.Mark(errors.New("model returned no response"), llms.ErrGateway)
	}
	metricskey.StatsLLMCallsSucceeded.IncrCounter(1, provider, modelName)
	metricskey.StatsLLMInputTokens.IncrCounter(float64(resp.Usage.InputTokens), provider, modelName)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(resp.Usage.OutputTokens), provider, modelName)

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "llm_response",
		"model", modelName,
		"stop_reason", resp.StopReason,
		"blocks", len(resp.Content),
		"elapsed", time.Since(started).String())

	if cb != nil {
		cb.OnLLMCallEnd(ctx, o.llm, resp)
	}
	return resp, nil
}

func (o *Orchestrator) resolve(res *Result, conv *llms.Conversation, lines []string) *Result {
	res.Transcript = strings.Join(lines, "\n\n")
	res.Messages = conv.Messages()
	return res
}

// record stores the query in the history, a failure does not fail the query.
func (o *Orchestrator) record(ctx context.Context, res *Result) {
	if o.cfg.History == nil || o.cfg.SessionID == "" {
		return
	}
	err := o.cfg.History.Add(ctx, o.cfg.SessionID, &store.Entry{
		Query:      res.Query,
		Transcript: res.Transcript,
		StopReason: res.StopReason,
		Truncated:  res.Truncated,
		Messages:   res.Messages,
	})
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "history_not_recorded",
			"session", o.cfg.SessionID,
			"query", slices.StringUpto(res.Query, 64),
			"err", err.Error())
	}
}
