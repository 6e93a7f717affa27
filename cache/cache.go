// Package cache is the optional Redis fast path in front of the message
// store. It only ever holds sanitized values, with a short TTL, and every
// operation is best effort: a Redis failure degrades to a store read.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"rolling-paper/contract"
	"rolling-paper/domain"
)

const (
	listKey       = "board:messages"
	messagePrefix = "board:message:"
)

type RedisCache struct {
	rdb        *redis.Client
	listTTL    time.Duration
	messageTTL time.Duration
	log        *slog.Logger
}

func NewRedisCache(rdb *redis.Client, listTTL, messageTTL time.Duration, log *slog.Logger) *RedisCache {
	return &RedisCache{rdb: rdb, listTTL: listTTL, messageTTL: messageTTL, log: log}
}

func (c *RedisCache) GetList(ctx context.Context) ([]domain.Message, bool) {
	payload, err := c.rdb.Get(ctx, listKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("Cache read failed, falling through to store", "error", err)
		return nil, false
	}
	var messages []domain.Message
	if err = json.Unmarshal(payload, &messages); err != nil {
		c.log.Warn("Dropping corrupt cache entry", "key", listKey, "error", err)
		_ = c.rdb.Del(ctx, listKey).Err()
		return nil, false
	}
	return messages, true
}

func (c *RedisCache) PutList(ctx context.Context, messages []domain.Message) {
	payload, err := json.Marshal(messages)
	if err != nil {
		return
	}
	if err = c.rdb.Set(ctx, listKey, payload, c.listTTL).Err(); err != nil {
		c.log.Warn("Cache write failed", "key", listKey, "error", err)
	}
}

func (c *RedisCache) GetByID(ctx context.Context, id string) (domain.Message, bool) {
	payload, err := c.rdb.Get(ctx, messagePrefix+id).Bytes()
	if err == redis.Nil {
		return domain.Message{}, false
	}
	if err != nil {
		c.log.Warn("Cache read failed, falling through to store", "error", err)
		return domain.Message{}, false
	}
	var m domain.Message
	if err = json.Unmarshal(payload, &m); err != nil {
		_ = c.rdb.Del(ctx, messagePrefix+id).Err()
		return domain.Message{}, false
	}
	return m, true
}

func (c *RedisCache) PutByID(ctx context.Context, m domain.Message) {
	payload, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err = c.rdb.Set(ctx, messagePrefix+m.ID, payload, c.messageTTL).Err(); err != nil {
		c.log.Warn("Cache write failed", "key", messagePrefix+m.ID, "error", err)
	}
}

// Invalidate drops the list entry and the id entry. Runs before a mutation
// is reported complete so readers never see the cache outlive the store.
func (c *RedisCache) Invalidate(ctx context.Context, id string) {
	if err := c.rdb.Del(ctx, listKey, messagePrefix+id).Err(); err != nil {
		c.log.Warn("Cache invalidation failed", "id", id, "error", err)
	}
}

// Disabled is the cache used when no Redis address is configured. Every read
// is a miss, so correctness rests on the store alone.
type Disabled struct{}

func (Disabled) GetList(context.Context) ([]domain.Message, bool)       { return nil, false }
func (Disabled) PutList(context.Context, []domain.Message)              {}
func (Disabled) GetByID(context.Context, string) (domain.Message, bool) { return domain.Message{}, false }
func (Disabled) PutByID(context.Context, domain.Message)                {}
func (Disabled) Invalidate(context.Context, string)                     {}

var _ contract.ListCache = (*RedisCache)(nil)
var _ contract.ListCache = Disabled{}
