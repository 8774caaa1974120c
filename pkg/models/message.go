// Package models holds the wire types shared between the flow engine and
// its callers: messages, and the runtime lifecycle events derived from them.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role indicates the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleAgent     Role = "agent"
)

// Message is the wire type exchanged between flow nodes. It is immutable
// once emitted: handlers that need a modified copy construct a new value.
type Message struct {
	ID       string         `json:"id"`
	Role     Role           `json:"role"`
	From     string         `json:"from"`
	To       string         `json:"to,omitempty"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	SentAt   time.Time      `json:"sent_at"`
}

// NewID returns a unique message or trace identifier.
func NewID() string {
	return uuid.New().String()
}

// NewMessage builds a Message with a fresh id and the current timestamp.
func NewMessage(role Role, from, content string) Message {
	return Message{
		ID:      NewID(),
		Role:    role,
		From:    from,
		Content: content,
		SentAt:  time.Now(),
	}
}

// UserMessage builds a User-role message attributed to "user".
func UserMessage(content string) Message {
	return NewMessage(RoleUser, "user", content)
}

// SystemMessage builds a System-role message attributed to "system".
func SystemMessage(content string) Message {
	return NewMessage(RoleSystem, "system", content)
}

// ToolMessage builds a Tool-role message attributed to the given tool name.
func ToolMessage(toolName, content string) Message {
	return NewMessage(RoleTool, toolName, content)
}

// WithTo returns a copy of m addressed to the given target node.
func (m Message) WithTo(to string) Message {
	m.To = to
	return m
}

// WithMetadata returns a copy of m with the given metadata attached.
func (m Message) WithMetadata(metadata map[string]any) Message {
	m.Metadata = metadata
	return m
}
