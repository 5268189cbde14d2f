package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketchat/pkg/errcode"
)

func TestGetConversationsFor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.msgSvc.SendMessage(ctx, "by__1", "sl__2", &SendRequest{Content: "about the lamp", ProductId: "p42"})
	require.NoError(t, err)
	second, err := env.msgSvc.SendMessage(ctx, "sl__3", "by__1", &SendRequest{Content: "price drop"})
	require.NoError(t, err)

	infos, pg, err := env.convSvc.GetConversationsFor(ctx, "by__1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pg.TotalItems)
	require.Len(t, infos, 2)

	// Most recently active first.
	assert.Equal(t, second.ConversationId, infos[0].Id)
	assert.Equal(t, "sl__3", infos[0].PeerUserId)
	assert.Equal(t, int64(1), infos[0].UnreadCount)
	require.NotNil(t, infos[0].LastMessage)
	assert.Equal(t, "price drop", infos[0].LastMessage.Content)

	assert.Equal(t, first.ConversationId, infos[1].Id)
	assert.Equal(t, "sl__2", infos[1].PeerUserId)
	// Outbound messages are not unread for the sender.
	assert.Equal(t, int64(0), infos[1].UnreadCount)
	require.Len(t, infos[1].Products, 1)
	assert.Equal(t, "p42", infos[1].Products[0].ProductId)
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.msgSvc.SendMessage(ctx, "by__1", "sl__2", &SendRequest{Content: "one"})
	require.NoError(t, err)
	_, err = env.msgSvc.SendToConversation(ctx, "by__1", res.ConversationId, &SendRequest{Content: "two"})
	require.NoError(t, err)

	affected, err := env.convSvc.MarkRead(ctx, "sl__2", res.ConversationId)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	unread, err := env.convSvc.UnreadCount(ctx, res.ConversationId, "sl__2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	// The sender gets a receipt naming the reader.
	receipts := env.pusher.Receipts()
	require.Len(t, receipts, 1)
	assert.Equal(t, "by__1", receipts[0].UserId)
	assert.Equal(t, "sl__2", receipts[0].ReaderId)
	assert.Equal(t, int64(2), receipts[0].Count)

	// Second call affects nothing and sends no receipt.
	affected, err = env.convSvc.MarkRead(ctx, "sl__2", res.ConversationId)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
	assert.Len(t, env.pusher.Receipts(), 1)
}

func TestMarkReadAuthz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.msgSvc.SendMessage(ctx, "by__1", "sl__2", &SendRequest{Content: "one"})
	require.NoError(t, err)

	_, err = env.convSvc.MarkRead(ctx, "by__9", res.ConversationId)
	assert.ErrorIs(t, err, errcode.ErrNotParticipant)

	_, err = env.convSvc.MarkRead(ctx, "sl__2", "missing")
	assert.ErrorIs(t, err, errcode.ErrConvNotFound)
}

func TestUnreadCountRecomputesOnMiss(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, "c1", "by__1", "sl__2")
	seedMany(t, env, conv.Id, "by__1", "sl__2", 1, 3, 0)

	// No counter seeded yet: the count comes from the store and seeds
	// the cache.
	unread, err := env.convSvc.UnreadCount(ctx, conv.Id, "sl__2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	val, ok := env.cache.GetUnread(ctx, conv.Id, "sl__2")
	require.True(t, ok)
	assert.Equal(t, int64(3), val)

	// A seeded counter now tracks increments.
	env.cache.IncrUnread(ctx, conv.Id, "sl__2", 1)
	unread, err = env.convSvc.UnreadCount(ctx, conv.Id, "sl__2")
	require.NoError(t, err)
	assert.Equal(t, int64(4), unread)
}

func TestPeerIdsFor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedConversation(t, env, "c1", "by__1", "sl__2")
	seedConversation(t, env, "c2", "by__1", "sl__3")

	peers, err := env.convSvc.PeerIdsFor(ctx, "by__1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sl__2", "sl__3"}, peers)
}
