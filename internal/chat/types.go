// Package chat owns the persisted chat session records and the
// recency-ordered index over them. It is the ownership authority for
// session identity and recency; search builds on top of it.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageMeta carries optional per-message annotations.
type MessageMeta struct {
	Tokens int    `json:"tokens,omitempty"`
	Model  string `json:"model,omitempty"`
}

// Message is a single chat message. Immutable once created; owned
// exclusively by its parent Session.
type Message struct {
	ID        string       `json:"id"`
	Role      Role         `json:"role"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
	Meta      *MessageMeta `json:"metadata,omitempty"`
}

// SessionMeta is derived bookkeeping recomputed on every save.
type SessionMeta struct {
	MessageCount       int      `json:"messageCount"`
	LastMessagePreview string   `json:"lastMessagePreview"`
	Tags               []string `json:"tags,omitempty"`
}

// Session is one persisted conversation. Messages are append-only during
// a conversation; ID is immutable and globally unique.
type Session struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Messages  []Message   `json:"messages"`
	Meta      SessionMeta `json:"metadata"`
}

// DefaultTitle is the placeholder title of a session that has not yet
// earned a derived one.
const DefaultTitle = "New Chat"

// previewLimit caps LastMessagePreview length in runes.
const previewLimit = 100

// NewMessage allocates a message with a fresh id and the current time.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// NewSession allocates an empty session with a fresh UUID and current
// timestamps. Pure allocation: nothing is persisted and the index is
// untouched until the first SaveChat.
func NewSession(title string) *Session {
	if title == "" {
		title = DefaultTitle
	}
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}
}

// Append adds a message to the session.
func (s *Session) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
}

// refreshMeta recomputes the derived metadata from the message list.
func (s *Session) refreshMeta() {
	s.Meta.MessageCount = len(s.Messages)
	if len(s.Messages) == 0 {
		s.Meta.LastMessagePreview = ""
		return
	}
	last := s.Messages[len(s.Messages)-1].Text
	runes := []rune(last)
	if len(runes) > previewLimit {
		last = string(runes[:previewLimit])
	}
	s.Meta.LastMessagePreview = last
}
