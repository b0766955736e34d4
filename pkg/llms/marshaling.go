package llms

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// blockJSON is the tagged JSON form of a content block.
type blockJSON struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	ToolUse    *ToolUse    `json:"tool_use,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

type messageJSON struct {
	Role    Role        `json:"role"`
	Content []blockJSON `json:"content"`
}

const (
	blockTypeText       = "text"
	blockTypeToolUse    = "tool_use"
	blockTypeToolResult = "tool_result"
)

// MarshalJSON implements json.Marshaler.
func (m Message) MarshalJSON() ([]byte, error) {
	mj := messageJSON{
		Role:    m.Role,
		Content: make([]blockJSON, 0, len(m.Content)),
	}
	for _, b := range m.Content {
		switch typ := b.(type) {
		case TextContent:
			mj.Content = append(mj.Content, blockJSON{Type: blockTypeText, Text: typ.Text})
		case ToolUse:
			mj.Content = append(mj.Content, blockJSON{Type: blockTypeToolUse, ToolUse: &typ})
		case ToolResult:
			mj.Content = append(mj.Content, blockJSON{Type: blockTypeToolResult, ToolResult: &typ})
		default:
			return nil, errors.WithMessagef(ErrUnsupportedContent, "%T", b)
		}
	}
	return json.Marshal(mj)
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var mj messageJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return errors.WithStack(err)
	}

	m.Role = mj.Role
	m.Content = make([]ContentBlock, 0, len(mj.Content))
	for _, b := range mj.Content {
		switch b.Type {
		case blockTypeText:
			m.Content = append(m.Content, TextContent{Text: b.Text})
		case blockTypeToolUse:
			if b.ToolUse == nil {
				return errors.Newf("missing tool_use payload")
			}
			m.Content = append(m.Content, *b.ToolUse)
		case blockTypeToolResult:
			if b.ToolResult == nil {
				return errors.Newf("missing tool_result payload")
			}
			m.Content = append(m.Content, *b.ToolResult)
		default:
			return errors.WithMessagef(ErrUnsupportedContent, "type %q", b.Type)
		}
	}
	return nil
}
