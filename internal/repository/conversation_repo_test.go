package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketchat/internal/entity"
)

func TestConversationGetOrCreate(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	conv := newConversation("c1", "by__1", "sl__2")
	got, created, err := repos.Conversation.GetOrCreate(ctx, conv)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "c1", got.Id)

	// Same pair in either order resolves to the existing conversation.
	dup := newConversation("c2", "sl__2", "by__1")
	got, created, err = repos.Conversation.GetOrCreate(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "c1", got.Id)

	var count int64
	require.NoError(t, repos.DB.Model(&entity.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestConversationListForUser(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	c1 := newConversation("c1", "by__1", "sl__2")
	c1.UpdatedAt = 100
	c2 := newConversation("c2", "by__1", "sl__3")
	c2.UpdatedAt = 200
	c3 := newConversation("c3", "by__9", "sl__3")
	for _, c := range []*entity.Conversation{c1, c2, c3} {
		_, _, err := repos.Conversation.GetOrCreate(ctx, c)
		require.NoError(t, err)
	}

	convs, total, err := repos.Conversation.ListForUser(ctx, "by__1", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, convs, 2)
	// Most recently active first.
	assert.Equal(t, "c2", convs[0].Id)
	assert.Equal(t, "c1", convs[1].Id)
}

func TestConversationListPeerIds(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	for _, c := range []*entity.Conversation{
		newConversation("c1", "by__1", "sl__2"),
		newConversation("c2", "by__1", "sl__3"),
		newConversation("c3", "by__5", "sl__2"),
	} {
		_, _, err := repos.Conversation.GetOrCreate(ctx, c)
		require.NoError(t, err)
	}

	peers, err := repos.Conversation.ListPeerIds(ctx, "by__1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sl__2", "sl__3"}, peers)
}

func TestConversationUpdateLastMessage(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	conv := newConversation("c1", "by__1", "sl__2")
	_, _, err := repos.Conversation.GetOrCreate(ctx, conv)
	require.NoError(t, err)

	err = repos.Conversation.UpdateLastMessage(repos.DB, "c1", "m9", 12345)
	require.NoError(t, err)

	got, err := repos.Conversation.GetById(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "m9", got.LastMessageId)
	assert.Equal(t, int64(12345), got.UpdatedAt)
}

func TestConversationUpdateProducts(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	conv := newConversation("c1", "by__1", "sl__2")
	_, _, err := repos.Conversation.GetOrCreate(ctx, conv)
	require.NoError(t, err)

	products := []entity.ProductEntry{{ProductId: "p42", AddedAt: 100}}
	err = repos.Conversation.UpdateProducts(repos.DB, "c1", products, 200)
	require.NoError(t, err)

	got, err := repos.Conversation.GetById(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got.Products, 1)
	assert.Equal(t, "p42", got.Products[0].ProductId)
	assert.True(t, got.HasProduct("p42"))
	assert.False(t, got.HasProduct("p43"))
}

func TestConversationNotFound(t *testing.T) {
	repos := newTestRepos(t)

	_, err := repos.Conversation.GetById(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}
