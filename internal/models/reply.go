package models

import "time"

// ReplyOutcome is one role's result within a round. Content is always a
// user-visible string; on failure it holds the canned fallback, never the
// raw error. ErrorDetail is for operator logs only.
type ReplyOutcome struct {
	RoleID      int64     `json:"role_id"`
	RoleName    string    `json:"role_name"`
	AvatarURL   string    `json:"avatar_url"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	Succeeded   bool      `json:"succeeded"`
	ErrorDetail string    `json:"-"`
	DelayMS     int64     `json:"delay"`
}
