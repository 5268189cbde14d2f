package cache

import (
	"context"

	"marketchat/internal/entity"
)

// Cache is the read-path acceleration layer. Implementations are best
// effort: a failed lookup is reported as a miss and a failed write is
// dropped, so the store stays the source of truth.
type Cache interface {
	// GetHistoryPage returns a cached page, or (nil, false) on miss.
	GetHistoryPage(ctx context.Context, convId string, page, pageSize int) (*entity.HistoryPage, bool)

	// SetHistoryPage stores a page under the conversation's key space.
	SetHistoryPage(ctx context.Context, convId string, page, pageSize int, data *entity.HistoryPage)

	// InvalidateConversation drops every cached page of one conversation.
	InvalidateConversation(ctx context.Context, convId string)

	// IncrUnread adds delta to the recipient's unread counter. The add is
	// skipped when no counter exists, so a cold counter stays cold until
	// the next recompute seeds it.
	IncrUnread(ctx context.Context, convId, userId string, delta int64)

	// SetUnread seeds the recipient's unread counter from the store.
	SetUnread(ctx context.Context, convId, userId string, count int64)

	// ResetUnread zeroes the recipient's unread counter.
	ResetUnread(ctx context.Context, convId, userId string)

	// GetUnread returns the counter value, or (0, false) on miss.
	GetUnread(ctx context.Context, convId, userId string) (int64, bool)
}
