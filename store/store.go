// Package store keeps the history of resolved queries, grouped by session.
package store

import (
	"context"
	"time"

	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "store")

// DefaultMaxEntries is the number of most recent entries kept per session.
const DefaultMaxEntries = 50

// Entry is a resolved query.
type Entry struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"session_id"`
	Query      string          `json:"query"`
	Transcript string          `json:"transcript"`
	StopReason llms.StopReason `json:"stop_reason,omitempty"`
	Truncated  bool            `json:"truncated,omitempty"`
	Messages   []llms.Message  `json:"messages,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// HistoryStore persists query history by session id.
type HistoryStore interface {
	// Add appends the entry to the session history,
	// ID and CreatedAt are assigned when empty.
	Add(ctx context.Context, sessionID string, entry *Entry) error
	// List returns the session history, oldest first.
	List(ctx context.Context, sessionID string) ([]*Entry, error)
	// Reset removes the session history.
	Reset(ctx context.Context, sessionID string) error
	// ListSessions returns the ids of sessions with history.
	ListSessions(ctx context.Context) ([]string, error)
}

// NewSessionID returns a new random session id.
func NewSessionID() string {
	return uuid.NewString()
}

func prepare(sessionID string, entry *Entry) *Entry {
	e := *entry
	e.SessionID = sessionID
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if len(entry.Messages) > 0 {
		e.Messages = make([]llms.Message, len(entry.Messages))
		for i, m := range entry.Messages {
			e.Messages[i] = m.Clone()
		}
	}
	return &e
}
