package conversation

import (
	"context"
	"strings"

	"sevensons/internal/models"
)

// Keywords that flag a turn as worth remembering. This is a plain substring
// scan: no stemming, no dedup, false positives and negatives are expected.
var memoryKeywords = []string{
	"重要", "记住", "下次", "以后", "姓名", "喜欢", "不喜欢", "生日", "工作", "家庭",
}

const (
	userSnippetImportance      = 0.8
	assistantSnippetImportance = 0.7
)

func containsMemoryKeyword(text string) bool {
	for _, kw := range memoryKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// RememberTurn scans a completed turn and stores snippets for the parts that
// match the keyword set. User statements rank slightly above assistant ones.
func (s *Store) RememberTurn(ctx context.Context, roleID int64, sessionID, userMessage, reply string) {
	now := s.now().UTC()
	if containsMemoryKeyword(userMessage) {
		s.AppendMemorySnippet(ctx, roleID, sessionID, models.MemorySnippet{
			Content:    "用户提到：" + userMessage,
			Importance: userSnippetImportance,
			Timestamp:  now,
			Context:    "用户重要信息",
		})
	}
	if containsMemoryKeyword(reply) {
		s.AppendMemorySnippet(ctx, roleID, sessionID, models.MemorySnippet{
			Content:    "我回复：" + reply,
			Importance: assistantSnippetImportance,
			Timestamp:  now,
			Context:    "AI重要回复",
		})
	}
}
