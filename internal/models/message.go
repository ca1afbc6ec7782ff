package models

import "time"

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is part of the closed enumeration.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is an append-only transcript entry inside a conversation.
type Message struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	ConversationID int64     `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToolCall records one tool invocation the intent resolver decided on.
type ToolCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}
