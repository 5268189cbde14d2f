package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"

	"marketchat/internal/entity"
	"marketchat/pkg/constant"
	"marketchat/pkg/metrics"
)

// TTLConfig holds the expirations used by RedisCache. The first page is
// the hottest and the most write-invalidated, so it gets the shortest TTL.
type TTLConfig struct {
	FirstPage time.Duration
	Page      time.Duration
	Unread    time.Duration
}

// DefaultTTLConfig returns production defaults
func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		FirstPage: 2 * time.Minute,
		Page:      5 * time.Minute,
		Unread:    time.Hour,
	}
}

// RedisCache implements Cache on Redis
type RedisCache struct {
	rdb *redis.Client
	ttl TTLConfig
}

// NewRedisCache creates a new RedisCache
func NewRedisCache(rdb *redis.Client, ttl TTLConfig) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func pageKey(convId string, page, pageSize int) string {
	return fmt.Sprintf(constant.RedisKeyHistoryPage(), convId, page, pageSize)
}

func unreadKey(convId, userId string) string {
	return fmt.Sprintf(constant.RedisKeyUnread(), convId, userId)
}

// GetHistoryPage returns a cached page, or (nil, false) on miss
func (c *RedisCache) GetHistoryPage(ctx context.Context, convId string, page, pageSize int) (*entity.HistoryPage, bool) {
	data, err := c.rdb.Get(ctx, pageKey(convId, page, pageSize)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.CtxWarn(ctx, "cache get page failed: conv=%s, err=%v", convId, err)
		}
		metrics.CacheLookups.WithLabelValues("page", "miss").Inc()
		return nil, false
	}

	var hp entity.HistoryPage
	if err := json.Unmarshal(data, &hp); err != nil {
		log.CtxWarn(ctx, "cache decode page failed: conv=%s, err=%v", convId, err)
		metrics.CacheLookups.WithLabelValues("page", "miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("page", "hit").Inc()
	return &hp, true
}

// SetHistoryPage stores a page with a TTL based on page number
func (c *RedisCache) SetHistoryPage(ctx context.Context, convId string, page, pageSize int, data *entity.HistoryPage) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.CtxWarn(ctx, "cache encode page failed: conv=%s, err=%v", convId, err)
		return
	}

	ttl := c.ttl.Page
	if page == 1 {
		ttl = c.ttl.FirstPage
	}
	if err := c.rdb.Set(ctx, pageKey(convId, page, pageSize), raw, ttl).Err(); err != nil {
		log.CtxWarn(ctx, "cache set page failed: conv=%s, err=%v", convId, err)
	}
}

// InvalidateConversation drops every cached page of one conversation.
// SCAN keeps invalidation non-blocking for the server.
func (c *RedisCache) InvalidateConversation(ctx context.Context, convId string) {
	pattern := fmt.Sprintf(constant.RedisKeyHistoryPagePattern(), convId)

	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			log.CtxWarn(ctx, "cache scan failed: conv=%s, err=%v", convId, err)
			return
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				log.CtxWarn(ctx, "cache del failed: conv=%s, err=%v", convId, err)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// incrIfExists increments the counter only while the key is still alive.
// One script keeps the existence check and the increment atomic: a
// separate EXISTS+INCRBY pair could resurrect an expired key with only
// the delta in it, and without a TTL.
var incrIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('INCRBY', KEYS[1], ARGV[1])
end
return -1
`)

// IncrUnread adds delta to an existing counter. A missing counter is left
// missing so reads recompute it from the store first.
func (c *RedisCache) IncrUnread(ctx context.Context, convId, userId string, delta int64) {
	key := unreadKey(convId, userId)
	if err := incrIfExists.Run(ctx, c.rdb, []string{key}, delta).Err(); err != nil {
		log.CtxWarn(ctx, "cache incr unread failed: conv=%s, err=%v", convId, err)
	}
}

// SetUnread seeds the counter with a fresh value from the store
func (c *RedisCache) SetUnread(ctx context.Context, convId, userId string, count int64) {
	if err := c.rdb.Set(ctx, unreadKey(convId, userId), count, c.ttl.Unread).Err(); err != nil {
		log.CtxWarn(ctx, "cache set unread failed: conv=%s, err=%v", convId, err)
	}
}

// ResetUnread zeroes the counter
func (c *RedisCache) ResetUnread(ctx context.Context, convId, userId string) {
	c.SetUnread(ctx, convId, userId, 0)
}

// GetUnread returns the counter value, or (0, false) on miss
func (c *RedisCache) GetUnread(ctx context.Context, convId, userId string) (int64, bool) {
	val, err := c.rdb.Get(ctx, unreadKey(convId, userId)).Int64()
	if err != nil {
		if err != redis.Nil {
			log.CtxWarn(ctx, "cache get unread failed: conv=%s, err=%v", convId, err)
		}
		metrics.CacheLookups.WithLabelValues("unread", "miss").Inc()
		return 0, false
	}
	metrics.CacheLookups.WithLabelValues("unread", "hit").Inc()
	return val, true
}
