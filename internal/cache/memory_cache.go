package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"marketchat/internal/entity"
)

// MemoryCache implements Cache on in-process maps. It mirrors the Redis
// key layout so invalidation-by-conversation behaves the same way. Used
// by tests and single-node development setups.
type MemoryCache struct {
	mu     sync.RWMutex
	pages  map[string]*entity.HistoryPage
	unread map[string]int64
}

// NewMemoryCache creates a new MemoryCache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		pages:  make(map[string]*entity.HistoryPage),
		unread: make(map[string]int64),
	}
}

func memPageKey(convId string, page, pageSize int) string {
	return fmt.Sprintf("page:%s:%d:%d", convId, page, pageSize)
}

func memUnreadKey(convId, userId string) string {
	return fmt.Sprintf("unread:%s:%s", convId, userId)
}

// GetHistoryPage returns a cached page, or (nil, false) on miss
func (c *MemoryCache) GetHistoryPage(ctx context.Context, convId string, page, pageSize int) (*entity.HistoryPage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hp, ok := c.pages[memPageKey(convId, page, pageSize)]
	return hp, ok
}

// SetHistoryPage stores a page
func (c *MemoryCache) SetHistoryPage(ctx context.Context, convId string, page, pageSize int, data *entity.HistoryPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[memPageKey(convId, page, pageSize)] = data
}

// InvalidateConversation drops every cached page of one conversation
func (c *MemoryCache) InvalidateConversation(ctx context.Context, convId string) {
	prefix := fmt.Sprintf("page:%s:", convId)
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.pages {
		if strings.HasPrefix(key, prefix) {
			delete(c.pages, key)
		}
	}
}

// IncrUnread adds delta to an existing counter
func (c *MemoryCache) IncrUnread(ctx context.Context, convId, userId string, delta int64) {
	key := memUnreadKey(convId, userId)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.unread[key]; !ok {
		return
	}
	c.unread[key] += delta
}

// SetUnread seeds the counter
func (c *MemoryCache) SetUnread(ctx context.Context, convId, userId string, count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unread[memUnreadKey(convId, userId)] = count
}

// ResetUnread zeroes the counter
func (c *MemoryCache) ResetUnread(ctx context.Context, convId, userId string) {
	c.SetUnread(ctx, convId, userId, 0)
}

// GetUnread returns the counter value, or (0, false) on miss
func (c *MemoryCache) GetUnread(ctx context.Context, convId, userId string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.unread[memUnreadKey(convId, userId)]
	return val, ok
}
