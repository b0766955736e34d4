package bedrockclient

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/xlog"
)

// Ref: https://docs.aws.amazon.com/bedrock/latest/APIReference/API_runtime_Converse.html

// stopReasons maps Converse stop reasons to model stop reasons
var stopReasons = map[types.StopReason]llms.StopReason{
	types.StopReasonEndTurn:                           llms.StopReasonEndTurn,
	types.StopReasonToolUse:                           llms.StopReasonToolUse,
	types.StopReasonMaxTokens:                         llms.StopReasonMaxTokens,
	types.StopReasonStopSequence:                      llms.StopReasonStopSequence,
	types.StopReasonContentFiltered:                   llms.StopReasonContentFiltered,
	types.StopReasonGuardrailIntervened:               llms.StopReasonContentFiltered,
	types.StopReason("model_context_window_exceeded"): llms.StopReasonMaxTokens,
}

// toConverseMessages converts the conversation to Converse messages.
// Converse requires alternating roles, so adjacent messages with the same role
// are sent as one message.
func toConverseMessages(messages []llms.Message) ([]types.Message, error) {
	merged := llms.MergeConsecutiveRoles(messages)
	list := make([]types.Message, 0, len(merged))
	for _, m := range merged {
		role, err := toConverseRole(m.Role)
		if err != nil {
			return nil, err
		}
		content := make([]types.ContentBlock, 0, len(m.Content))
		for _, b := range m.Content {
			cb, err := toContentBlock(b)
			if err != nil {
				return nil, err
			}
			content = append(content, cb)
		}
		list = append(list, types.Message{
			Role:    role,
			Content: content,
		})
	}
	return list, nil
}

func toConverseRole(role llms.Role) (types.ConversationRole, error) {
	switch role {
	case llms.RoleUser:
		return types.ConversationRoleUser, nil
	case llms.RoleAssistant:
		return types.ConversationRoleAssistant, nil
	default:
		return "", errors.WithMessagef(llms.ErrUnexpectedRole, "bedrock: %q", role)
	}
}

func toContentBlock(b llms.ContentBlock) (types.ContentBlock, error) {
	switch typ := b.(type) {
	case llms.TextContent:
		return &types.ContentBlockMemberText{Value: typ.Text}, nil
	case llms.ToolUse:
		input := typ.Input
		if input == nil {
			input = map[string]any{}
		}
		return &types.ContentBlockMemberToolUse{
			Value: types.ToolUseBlock{
				ToolUseId: aws.String(typ.ID),
				Name:      aws.String(typ.Name),
				Input:     document.NewLazyDocument(input),
			},
		}, nil
	case llms.ToolResult:
		content := make([]types.ToolResultContentBlock, 0, len(typ.Content))
		for _, c := range typ.Content {
			content = append(content, &types.ToolResultContentBlockMemberJson{
				Value: document.NewLazyDocument(map[string]any{"text": c.Text}),
			})
		}
		return &types.ContentBlockMemberToolResult{
			Value: types.ToolResultBlock{
				ToolUseId: aws.String(typ.ToolUseID),
				Content:   content,
			},
		}, nil
	default:
		return nil, errors.WithMessagef(llms.ErrUnsupportedContent, "bedrock: %T", b)
	}
}

func toToolConfiguration(tools []llms.ToolSpec) (*types.ToolConfiguration, error) {
	if len(tools) == 0 {
		// Converse rejects an empty tool list
		return nil, nil
	}
	list := make([]types.Tool, 0, len(tools))
	for _, t := range tools {
		if t.Spec.Name == "" {
			return nil, errors.New("bedrock: tool name is required")
		}
		list = append(list, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(t.Spec.Name),
				Description: aws.String(t.Spec.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(t.Schema()),
				},
			},
		})
	}
	return &types.ToolConfiguration{Tools: list}, nil
}

func toInferenceConfiguration(options llms.CallOptions) *types.InferenceConfiguration {
	cfg := &types.InferenceConfiguration{
		MaxTokens:   aws.Int32(int32(options.MaxTokens)),
		Temperature: aws.Float32(float32(options.Temperature)),
	}
	if len(options.StopWords) > 0 {
		cfg.StopSequences = options.StopWords
	}
	return cfg
}

func parseConverseOutput(out *bedrockruntime.ConverseOutput) (*llms.CompletionResponse, error) {
	if out == nil {
		return nil, errors.New("bedrock: empty response")
	}
	if out.StopReason == "" {
		return nil, errors.New("bedrock: response has no stop reason")
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, errors.Newf("bedrock: unexpected output type %T", out.Output)
	}

	stopReason, ok := stopReasons[out.StopReason]
	if !ok {
		stopReason = llms.StopReason(out.StopReason)
	}

	resp := &llms.CompletionResponse{
		StopReason: stopReason,
		Content:    make([]llms.ContentBlock, 0, len(msg.Value.Content)),
	}
	if out.Usage != nil {
		resp.Usage.InputTokens = int64(aws.ToInt32(out.Usage.InputTokens))
		resp.Usage.OutputTokens = int64(aws.ToInt32(out.Usage.OutputTokens))
	}

	for _, b := range msg.Value.Content {
		switch typ := b.(type) {
		case *types.ContentBlockMemberText:
			resp.Content = append(resp.Content, llms.TextContent{Text: typ.Value})
		case *types.ContentBlockMemberToolUse:
			input, err := decodeDocument(typ.Value.Input)
			if err != nil {
				return nil, errors.WithMessagef(err, "bedrock: tool use %s", aws.ToString(typ.Value.ToolUseId))
			}
			resp.Content = append(resp.Content, llms.ToolUse{
				ID:    aws.ToString(typ.Value.ToolUseId),
				Name:  aws.ToString(typ.Value.Name),
				Input: input,
			})
		default:
			logger.KV(xlog.DEBUG,
				"status", "skipped_content_block",
				"type", fmt.Sprintf("%T", b))
		}
	}
	return resp, nil
}

// decodeDocument converts a Smithy document to a plain JSON object,
// numbers are decoded as float64.
func decodeDocument(doc document.Interface) (map[string]any, error) {
	if doc == nil {
		return nil, nil
	}
	js, err := doc.MarshalSmithyDocument()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal document")
	}
	var m map[string]any
	if err := json.Unmarshal(js, &m); err != nil {
		return nil, errors.Wrap(err, "failed to decode document")
	}
	return m, nil
}
