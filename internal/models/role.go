package models

import "time"

// CompletionConfig carries the per-role provider settings used to reach a
// completion API. It may be absent or hold invalid credentials; callers must
// treat that as a request for the demo fallback, never as an error.
type CompletionConfig struct {
	Provider     string  `json:"provider"`
	APIKey       string  `json:"api_key"`
	Model        string  `json:"model"`
	Temperature  float32 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	SystemPrompt string  `json:"system_prompt"`
	Host         string  `json:"host,omitempty"`
}

// Role is a named AI persona.
type Role struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	AvatarURL   string            `json:"avatar_url"`
	Personality string            `json:"personality"`
	Specialties []string          `json:"specialties"`
	IsActive    bool              `json:"is_active"`
	Completion  *CompletionConfig `json:"api_config,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
