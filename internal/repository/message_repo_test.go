package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketchat/internal/entity"
)

func seedMessages(t *testing.T, repos *Repositories, convId string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		m := newMessage(fmt.Sprintf("m%03d", i), convId, "by__1", "sl__2", fmt.Sprintf("msg %d", i), int64(i*1000))
		require.NoError(t, repos.Message.Create(repos.DB, m))
	}
}

func TestMessagePageAsc(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedMessages(t, repos, "c1", 5)

	msgs, err := repos.Message.PageAsc(ctx, "c1", 1, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m002", msgs[0].Id)
	assert.Equal(t, "m003", msgs[1].Id)

	count, err := repos.Message.CountByConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestMessageMarkConversationRead(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	// Three inbound for sl__2, one outbound from them.
	seedMessages(t, repos, "c1", 3)
	out := newMessage("m900", "c1", "sl__2", "by__1", "reply", 9000)
	require.NoError(t, repos.Message.Create(repos.DB, out))

	affected, err := repos.Message.MarkConversationRead(ctx, "c1", "sl__2", entity.NowUnixMilli())
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)

	// Re-marking is a no-op: status never regresses and nothing matches.
	affected, err = repos.Message.MarkConversationRead(ctx, "c1", "sl__2", entity.NowUnixMilli())
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	// The reader's own outbound message is untouched.
	got, err := repos.Message.GetById(ctx, "m900")
	require.NoError(t, err)
	assert.Equal(t, entity.MessageStatusSent, got.Status)

	unread, err := repos.Message.CountUnread(ctx, "c1", "sl__2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestMessageMarkDeliveredMonotonic(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedMessages(t, repos, "c1", 1)

	affected, err := repos.Message.MarkDelivered(ctx, "m001", entity.NowUnixMilli())
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Read outranks delivered; a late delivery ack must not downgrade it.
	_, err = repos.Message.MarkConversationRead(ctx, "c1", "sl__2", entity.NowUnixMilli())
	require.NoError(t, err)

	affected, err = repos.Message.MarkDelivered(ctx, "m001", entity.NowUnixMilli())
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	got, err := repos.Message.GetById(ctx, "m001")
	require.NoError(t, err)
	assert.Equal(t, entity.MessageStatusRead, got.Status)
}

func TestMessageFindOlderThan(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedMessages(t, repos, "c1", 5)

	msgs, err := repos.Message.FindOlderThan(ctx, "c1", 4000, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m001", msgs[0].Id)

	// Limit caps the batch.
	msgs, err = repos.Message.FindOlderThan(ctx, "c1", 4000, 2)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	ids, err := repos.Message.DistinctConversationsOlderThan(ctx, 4000)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)
}

func TestMessageDeleteByIds(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedMessages(t, repos, "c1", 3)

	require.NoError(t, repos.Message.DeleteByIds(repos.DB, []string{"m001", "m003"}))
	require.NoError(t, repos.Message.DeleteByIds(repos.DB, nil))

	count, err := repos.Message.CountByConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
