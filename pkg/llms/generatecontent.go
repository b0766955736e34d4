package llms

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnexpectedRole is returned when a message role is of an unexpected type.
var ErrUnexpectedRole = errors.New("unexpected role")

// ErrUnsupportedContent is returned when a content block is not one of the known kinds.
var ErrUnsupportedContent = errors.New("unsupported content block")

// Role is the author of a message.
type Role string

const (
	// RoleUser is a message sent by the human, or a tool result returned on their behalf.
	RoleUser Role = "user"
	// RoleAssistant is a message produced by the model.
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ContentBlock is a closed union of the content kinds a message can carry:
// TextContent, ToolUse and ToolResult.
type ContentBlock interface {
	isBlock()
}

// TextContent is content with some text.
type TextContent struct {
	Text string `json:"text"`
}

func (tc TextContent) String() string {
	return tc.Text
}

func (TextContent) isBlock() {}

// ToolUse is a request by the model to invoke a tool.
type ToolUse struct {
	// ID is unique within a conversation.
	ID    string         `json:"toolUseId"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// InputJSON returns the input rendered as JSON, an absent input renders as {}.
func (tu ToolUse) InputJSON() string {
	if tu.Input == nil {
		return "{}"
	}
	js, err := json.Marshal(tu.Input)
	if err != nil {
		return fmt.Sprintf("%v", tu.Input)
	}
	return string(js)
}

func (tu ToolUse) String() string {
	return fmt.Sprintf("ToolUse: %s (%s), input: %s", tu.ID, tu.Name, tu.InputJSON())
}

func (ToolUse) isBlock() {}

// ToolResult is the outcome of a tool invocation, correlated by ToolUseID.
type ToolResult struct {
	ToolUseID string        `json:"toolUseId"`
	Content   []TextContent `json:"content"`
}

// Text returns the result content joined by new lines.
func (tr ToolResult) Text() string {
	parts := make([]string, 0, len(tr.Content))
	for _, c := range tr.Content {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n")
}

func (tr ToolResult) String() string {
	return fmt.Sprintf("ToolResult: %s, response size: %d", tr.ToolUseID, len(tr.Text()))
}

func (ToolResult) isBlock() {}

// Message is one entry of a conversation.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// NewMessage is a helper function to create a Message with a role and a
// list of content blocks.
func NewMessage(role Role, blocks ...ContentBlock) Message {
	return Message{
		Role:    role,
		Content: blocks,
	}
}

// NewTextMessage is a helper function to create a Message with a role and a
// list of text blocks.
func NewTextMessage(role Role, texts ...string) Message {
	m := Message{
		Role:    role,
		Content: make([]ContentBlock, 0, len(texts)),
	}
	for _, t := range texts {
		m.Content = append(m.Content, TextContent{Text: t})
	}
	return m
}

// NewToolUseMessage returns an assistant message carrying the tool use.
func NewToolUseMessage(tu ToolUse) Message {
	return NewMessage(RoleAssistant, tu)
}

// NewToolResultMessage returns a user message carrying the tool result.
func NewToolResultMessage(tr ToolResult) Message {
	return NewMessage(RoleUser, tr)
}

// Clone returns a deep enough copy of the message for it to be immutable
// from the caller's point of view.
func (m Message) Clone() Message {
	c := Message{
		Role:    m.Role,
		Content: make([]ContentBlock, len(m.Content)),
	}
	for i, b := range m.Content {
		switch typ := b.(type) {
		case ToolUse:
			input := make(map[string]any, len(typ.Input))
			for k, v := range typ.Input {
				input[k] = v
			}
			if typ.Input == nil {
				input = nil
			}
			c.Content[i] = ToolUse{ID: typ.ID, Name: typ.Name, Input: input}
		case ToolResult:
			c.Content[i] = ToolResult{ToolUseID: typ.ToolUseID, Content: append([]TextContent(nil), typ.Content...)}
		default:
			c.Content[i] = b
		}
	}
	return c
}

// GetContent returns a human readable rendering of the message.
func (m Message) GetContent() string {
	var buf strings.Builder
	for i, b := range m.Content {
		if i > 0 {
			buf.WriteString("\n")
		}
		switch typ := b.(type) {
		case TextContent:
			buf.WriteString(typ.Text)
		case ToolUse:
			buf.WriteString("Tool Call: ")
			buf.WriteString(typ.Name)
			buf.WriteString(" ")
			buf.WriteString(typ.InputJSON())
		case ToolResult:
			buf.WriteString("Response: ")
			buf.WriteString(typ.Text())
		}
	}
	return buf.String()
}

// MergeConsecutiveRoles returns messages where adjacent messages with the same
// role are combined into one, preserving the block order.
// Model services that require alternating roles use it before encoding.
func MergeConsecutiveRoles(messages []Message) []Message {
	var merged []Message
	for _, m := range messages {
		if len(m.Content) == 0 {
			continue
		}
		n := len(merged)
		if n > 0 && merged[n-1].Role == m.Role {
			merged[n-1].Content = append(merged[n-1].Content, m.Content...)
			continue
		}
		merged = append(merged, Message{
			Role:    m.Role,
			Content: append([]ContentBlock(nil), m.Content...),
		})
	}
	return merged
}

// FirstText returns the text of the first block if it is text, otherwise the
// first text block found. The second return value is false when there is no text.
func FirstText(blocks []ContentBlock) (string, bool) {
	for _, b := range blocks {
		if tc, ok := b.(TextContent); ok {
			return tc.Text, true
		}
	}
	return "", false
}
