package models

import "time"

// ConversationMessage is one entry in a role's private history with a session.
type ConversationMessage struct {
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	Timestamp time.Time `json:"timestamp"`
}

// MemorySnippet is a short fact retained across turns. Importance is on a
// 0-1 scale; higher survives longer when the snippet set is truncated.
type MemorySnippet struct {
	Content    string    `json:"content"`
	Importance float64   `json:"importance"`
	Timestamp  time.Time `json:"timestamp"`
	Context    string    `json:"context,omitempty"`
}

// ConversationRecord is the persisted state for one (role, session) pair.
type ConversationRecord struct {
	RoleID        int64                 `json:"role_id"`
	SessionID     string                `json:"session_id"`
	Messages      []ConversationMessage `json:"messages"`
	Snippets      []MemorySnippet       `json:"memory_snippets"`
	Summary       string                `json:"conversation_summary"`
	LastMessageAt time.Time             `json:"last_message_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}
