package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"sort"
	"strings"
	"time"

	"sevensons/internal/models"
	"sevensons/internal/redis"
)

const (
	// DefaultMaxHistory bounds the per-(role, session) message log.
	DefaultMaxHistory = 20
	// DefaultMaxSnippets bounds the importance-ranked memory set.
	DefaultMaxSnippets = 10
)

// Store keeps per-(role, session) conversation records: a bounded message
// log, a bounded importance-ranked memory-snippet set, and an optional
// summary. Persistence is best effort: storage failures are logged and
// swallowed so a database outage degrades continuity, not availability.
type Store struct {
	db          *sql.DB
	cache       *recordCache
	maxHistory  int
	maxSnippets int
	now         func() time.Time
}

// NewStore builds a store over the ai_conversations table. cacheClient may
// be nil; the store then reads straight from SQL.
func NewStore(db *sql.DB, cacheClient *redis.Client) *Store {
	return &Store{
		db:          db,
		cache:       newRecordCache(cacheClient),
		maxHistory:  DefaultMaxHistory,
		maxSnippets: DefaultMaxSnippets,
		now:         time.Now,
	}
}

// AppendMessage inserts at the tail of the message log and evicts from the
// head past the history cap.
func (s *Store) AppendMessage(ctx context.Context, roleID int64, sessionID string, msg models.ConversationMessage) {
	rec := s.record(ctx, roleID, sessionID)
	rec.Messages = append(rec.Messages, msg)
	if len(rec.Messages) > s.maxHistory {
		rec.Messages = rec.Messages[len(rec.Messages)-s.maxHistory:]
	}
	rec.LastMessageAt = s.now().UTC()
	s.save(ctx, rec)
}

// AppendMemorySnippet inserts a snippet, re-sorts descending by importance,
// and truncates to the snippet cap.
func (s *Store) AppendMemorySnippet(ctx context.Context, roleID int64, sessionID string, snippet models.MemorySnippet) {
	rec := s.record(ctx, roleID, sessionID)
	rec.Snippets = append(rec.Snippets, snippet)
	sort.SliceStable(rec.Snippets, func(i, j int) bool {
		return rec.Snippets[i].Importance > rec.Snippets[j].Importance
	})
	if len(rec.Snippets) > s.maxSnippets {
		rec.Snippets = rec.Snippets[:s.maxSnippets]
	}
	s.save(ctx, rec)
}

// History returns the retained messages in insertion order. Storage errors
// degrade to an empty result.
func (s *Store) History(ctx context.Context, roleID int64, sessionID string) []models.ConversationMessage {
	return s.record(ctx, roleID, sessionID).Messages
}

// Snippets returns the retained memory snippets, most important first.
func (s *Store) Snippets(ctx context.Context, roleID int64, sessionID string) []models.MemorySnippet {
	return s.record(ctx, roleID, sessionID).Snippets
}

// BuildSystemPromptWithMemory appends the rendered snippet list to the base
// prompt. With no snippets the base prompt is returned unchanged.
func (s *Store) BuildSystemPromptWithMemory(ctx context.Context, roleID int64, sessionID, basePrompt string) string {
	snippets := s.Snippets(ctx, roleID, sessionID)
	if len(snippets) == 0 {
		return basePrompt
	}
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\n你的记忆片段：\n")
	for i, snippet := range snippets {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(snippet.Content)
	}
	b.WriteString("\n\n请根据这些记忆保持角色的一致性和连续性。")
	return b.String()
}

// Summary returns the stored conversation summary, if any.
func (s *Store) Summary(ctx context.Context, roleID int64, sessionID string) string {
	return s.record(ctx, roleID, sessionID).Summary
}

// UpdateSummary replaces the stored summary.
func (s *Store) UpdateSummary(ctx context.Context, roleID int64, sessionID, summary string) {
	rec := s.record(ctx, roleID, sessionID)
	rec.Summary = summary
	s.save(ctx, rec)
}

// Clear removes the record entirely; subsequent reads behave as if the pair
// never conversed. Clearing an absent record is a no-op.
func (s *Store) Clear(ctx context.Context, roleID int64, sessionID string) {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM ai_conversations WHERE role_id = ? AND session_id = ?`,
		roleID, sessionID,
	); err != nil {
		log.Printf("conversation clear failed for role %d session %s: %v", roleID, sessionID, err)
	}
	s.cache.invalidate(ctx, roleID, sessionID)
}

// record loads the current state for the pair, cache first, then SQL. A
// missing row or any read failure yields an empty record.
func (s *Store) record(ctx context.Context, roleID int64, sessionID string) models.ConversationRecord {
	if rec, ok := s.cache.load(ctx, roleID, sessionID); ok {
		return rec
	}
	rec := models.ConversationRecord{RoleID: roleID, SessionID: sessionID}

	var (
		messages string
		snippets string
		summary  sql.NullString
		lastAt   sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT messages, memory_snippets, conversation_summary, last_message_at
		 FROM ai_conversations WHERE role_id = ? AND session_id = ?`,
		roleID, sessionID,
	).Scan(&messages, &snippets, &summary, &lastAt)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("conversation read failed for role %d session %s: %v", roleID, sessionID, err)
		}
		return rec
	}
	if err := json.Unmarshal([]byte(messages), &rec.Messages); err != nil {
		log.Printf("conversation decode messages failed for role %d session %s: %v", roleID, sessionID, err)
	}
	if err := json.Unmarshal([]byte(snippets), &rec.Snippets); err != nil {
		log.Printf("conversation decode snippets failed for role %d session %s: %v", roleID, sessionID, err)
	}
	if summary.Valid {
		rec.Summary = summary.String
	}
	if lastAt.Valid {
		rec.LastMessageAt = lastAt.Time
	}
	s.cache.store(ctx, rec)
	return rec
}

// save upserts the record. Write failures are logged and swallowed.
func (s *Store) save(ctx context.Context, rec models.ConversationRecord) {
	messages, err := json.Marshal(emptyIfNilMessages(rec.Messages))
	if err != nil {
		log.Printf("conversation encode messages failed: %v", err)
		return
	}
	snippets, err := json.Marshal(emptyIfNilSnippets(rec.Snippets))
	if err != nil {
		log.Printf("conversation encode snippets failed: %v", err)
		return
	}
	now := s.now().UTC()
	rec.UpdatedAt = now

	var lastAt any
	if !rec.LastMessageAt.IsZero() {
		lastAt = rec.LastMessageAt
	}

	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM ai_conversations WHERE role_id = ? AND session_id = ?`,
		rec.RoleID, rec.SessionID,
	).Scan(&exists)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO ai_conversations (role_id, session_id, messages, memory_snippets, conversation_summary, last_message_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RoleID, rec.SessionID, string(messages), string(snippets),
			nullableString(rec.Summary), lastAt, now, now,
		)
	case err == nil:
		_, err = s.db.ExecContext(ctx,
			`UPDATE ai_conversations SET messages = ?, memory_snippets = ?, conversation_summary = ?, last_message_at = ?, updated_at = ?
			 WHERE role_id = ? AND session_id = ?`,
			string(messages), string(snippets), nullableString(rec.Summary),
			lastAt, now, rec.RoleID, rec.SessionID,
		)
	}
	if err != nil {
		log.Printf("conversation write failed for role %d session %s: %v", rec.RoleID, rec.SessionID, err)
		s.cache.invalidate(ctx, rec.RoleID, rec.SessionID)
		return
	}
	s.cache.store(ctx, rec)
}

func nullableString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func emptyIfNilMessages(m []models.ConversationMessage) []models.ConversationMessage {
	if m == nil {
		return []models.ConversationMessage{}
	}
	return m
}

func emptyIfNilSnippets(m []models.MemorySnippet) []models.MemorySnippet {
	if m == nil {
		return []models.MemorySnippet{}
	}
	return m
}
