package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"sevensons/internal/models"
	"sevensons/internal/redis"
)

const cacheTTL = 30 * time.Minute

// recordCache keeps recently used conversation records in redis so hot
// sessions skip the SQL round trip. Every method is safe on a nil receiver
// or nil client; cache failures degrade silently to SQL.
type recordCache struct {
	client *redis.Client
}

func newRecordCache(client *redis.Client) *recordCache {
	return &recordCache{client: client}
}

func cacheKey(roleID int64, sessionID string) string {
	return fmt.Sprintf("conversation:%d:%s", roleID, sessionID)
}

func (c *recordCache) load(ctx context.Context, roleID int64, sessionID string) (models.ConversationRecord, bool) {
	if c == nil || c.client == nil {
		return models.ConversationRecord{}, false
	}
	raw, err := c.client.Get(ctx, cacheKey(roleID, sessionID))
	if err != nil {
		if err != redis.ErrCacheMiss {
			log.Printf("conversation cache read failed: %v", err)
		}
		return models.ConversationRecord{}, false
	}
	var rec models.ConversationRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		log.Printf("conversation cache decode failed: %v", err)
		return models.ConversationRecord{}, false
	}
	return rec, true
}

func (c *recordCache) store(ctx context.Context, rec models.ConversationRecord) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		log.Printf("conversation cache encode failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, cacheKey(rec.RoleID, rec.SessionID), data, cacheTTL); err != nil {
		log.Printf("conversation cache write failed: %v", err)
	}
}

func (c *recordCache) invalidate(ctx context.Context, roleID int64, sessionID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(roleID, sessionID)); err != nil && err != redis.ErrCacheMiss {
		log.Printf("conversation cache invalidate failed: %v", err)
	}
}
