package llms

import (
	"github.com/cockroachdb/errors"
)

// ErrDuplicateToolUse is returned when a tool use id is already present in the conversation.
var ErrDuplicateToolUse = errors.New("duplicate tool use id")

// ErrUnpairedToolUse is returned when a tool use is not immediately followed
// by its result.
var ErrUnpairedToolUse = errors.New("tool use without matching result")

// Conversation is an append-only, ordered sequence of messages owned by a
// single query. Messages are copied on the way in and on the way out.
type Conversation struct {
	messages []Message
	toolUses map[string]struct{}
}

// NewConversation returns a conversation seeded with the messages.
func NewConversation(messages ...Message) (*Conversation, error) {
	c := &Conversation{
		toolUses: make(map[string]struct{}),
	}
	for _, m := range messages {
		if err := c.Append(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Append adds a copy of the message at the end of the conversation.
func (c *Conversation) Append(m Message) error {
	if !m.Role.Valid() {
		return errors.WithMessagef(ErrUnexpectedRole, "role %q", m.Role)
	}
	if c.toolUses == nil {
		c.toolUses = make(map[string]struct{})
	}

	var ids []string
	for _, b := range m.Content {
		switch typ := b.(type) {
		case TextContent, ToolResult:
		case ToolUse:
			if _, ok := c.toolUses[typ.ID]; ok {
				return errors.WithMessagef(ErrDuplicateToolUse, "id %q", typ.ID)
			}
			ids = append(ids, typ.ID)
		default:
			return errors.WithMessagef(ErrUnsupportedContent, "%T", b)
		}
	}
	for _, id := range ids {
		c.toolUses[id] = struct{}{}
	}
	c.messages = append(c.messages, m.Clone())
	return nil
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Messages returns a copy of the messages in order.
func (c *Conversation) Messages() []Message {
	list := make([]Message, len(c.messages))
	for i, m := range c.messages {
		list[i] = m.Clone()
	}
	return list
}

// Validate checks that every tool use with id X is immediately followed by a
// message carrying a tool result for X.
func (c *Conversation) Validate() error {
	for i, m := range c.messages {
		for _, b := range m.Content {
			tu, ok := b.(ToolUse)
			if !ok {
				continue
			}
			if i+1 >= len(c.messages) || !hasResult(c.messages[i+1], tu.ID) {
				return errors.WithMessagef(ErrUnpairedToolUse, "id %q", tu.ID)
			}
		}
	}
	return nil
}

func hasResult(m Message, id string) bool {
	for _, b := range m.Content {
		if tr, ok := b.(ToolResult); ok && tr.ToolUseID == id {
			return true
		}
	}
	return false
}
