package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketchat/internal/entity"
	"marketchat/pkg/errcode"
)

// seedArchived inserts archived rows directly, as the archiver would
// have left them.
func seedArchived(t *testing.T, env *testEnv, convId, sender, receiver string, from, to int, baseTs int64) {
	t.Helper()
	var rows []*entity.ArchivedMessage
	for i := from; i <= to; i++ {
		m := &entity.Message{
			Id:             fmt.Sprintf("m%04d", i),
			ConversationId: convId,
			SenderId:       sender,
			ReceiverId:     receiver,
			Content:        fmt.Sprintf("msg %d", i),
			Status:         entity.MessageStatusRead,
			CreatedAt:      baseTs + int64(i)*1000,
			UpdatedAt:      baseTs + int64(i)*1000,
		}
		rows = append(rows, entity.NewArchivedMessage(m, fmt.Sprintf("a%04d", i), baseTs))
	}
	require.NoError(t, env.repos.Archive.BulkInsert(env.repos.DB, rows))
}

func TestGetHistoryBlendsArchiveAndLive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, "c1", "by__1", "sl__2")
	// 120 messages total: 1..90 archived, 91..120 live.
	seedArchived(t, env, conv.Id, "by__1", "sl__2", 1, 90, 0)
	seedMany(t, env, conv.Id, "by__1", "sl__2", 91, 120, 0)

	// Page 2 of 20 is items 21..40, entirely from the archive.
	hp, err := env.histSvc.GetHistory(ctx, "by__1", conv.Id, 2, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(120), hp.Pagination.TotalItems)
	assert.Equal(t, 6, hp.Pagination.TotalPages)
	assert.True(t, hp.Pagination.HasNext)
	require.Len(t, hp.Messages, 20)
	assert.Equal(t, "msg 21", hp.Messages[0].Content)
	assert.Equal(t, "msg 40", hp.Messages[19].Content)

	// Page 5 is items 81..100, straddling both storages.
	hp, err = env.histSvc.GetHistory(ctx, "by__1", conv.Id, 5, 20)
	require.NoError(t, err)
	require.Len(t, hp.Messages, 20)
	assert.Equal(t, "msg 81", hp.Messages[0].Content)
	assert.Equal(t, "msg 100", hp.Messages[19].Content)
	for i := 1; i < len(hp.Messages); i++ {
		assert.LessOrEqual(t, hp.Messages[i-1].CreatedAt, hp.Messages[i].CreatedAt)
	}

	// The last page is items 101..120, entirely live.
	hp, err = env.histSvc.GetHistory(ctx, "by__1", conv.Id, 6, 20)
	require.NoError(t, err)
	require.Len(t, hp.Messages, 20)
	assert.Equal(t, "msg 120", hp.Messages[19].Content)
	assert.False(t, hp.Pagination.HasNext)
}

func TestGetHistoryServesCachedPage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, "c1", "by__1", "sl__2")
	seedMany(t, env, conv.Id, "by__1", "sl__2", 1, 5, 0)

	first, err := env.histSvc.GetHistory(ctx, "by__1", conv.Id, 1, 20)
	require.NoError(t, err)
	require.Len(t, first.Messages, 5)

	// Replace the cached entry with a sentinel: a hit must not touch
	// the store.
	sentinel := &entity.HistoryPage{Pagination: entity.NewPagination(1, 20, 999)}
	env.cache.SetHistoryPage(ctx, conv.Id, 1, 20, sentinel)

	got, err := env.histSvc.GetHistory(ctx, "by__1", conv.Id, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(999), got.Pagination.TotalItems)
}

func TestGetHistoryGroupsByDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, "c1", "by__1", "sl__2")
	now := time.Now()
	seedMessage(t, env, "m1", conv.Id, "by__1", "sl__2", "old", now.AddDate(0, 0, -5).UnixMilli())
	seedMessage(t, env, "m2", conv.Id, "by__1", "sl__2", "yesterday", now.AddDate(0, 0, -1).UnixMilli())
	seedMessage(t, env, "m3", conv.Id, "sl__2", "by__1", "today a", now.Add(-time.Minute).UnixMilli())
	seedMessage(t, env, "m4", conv.Id, "by__1", "sl__2", "today b", now.UnixMilli())

	hp, err := env.histSvc.GetHistory(ctx, "by__1", conv.Id, 1, 20)
	require.NoError(t, err)
	require.Len(t, hp.Groups, 3)
	assert.Equal(t, now.AddDate(0, 0, -5).Format("2 January 2006"), hp.Groups[0].Label)
	assert.Equal(t, "Yesterday", hp.Groups[1].Label)
	assert.Equal(t, "Today", hp.Groups[2].Label)
	assert.Len(t, hp.Groups[2].Messages, 2)
}

func TestGetHistoryAuthz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, "c1", "by__1", "sl__2")

	_, err := env.histSvc.GetHistory(ctx, "by__9", conv.Id, 1, 20)
	assert.ErrorIs(t, err, errcode.ErrNotParticipant)

	_, err = env.histSvc.GetHistory(ctx, "by__1", "missing", 1, 20)
	assert.ErrorIs(t, err, errcode.ErrConvNotFound)

	require.NoError(t, env.repos.Conversation.SetActive(ctx, conv.Id, false))
	_, err = env.histSvc.GetHistory(ctx, "by__1", conv.Id, 1, 20)
	assert.ErrorIs(t, err, errcode.ErrConvInactive)
}

func TestGetHistoryMarksInboundRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, "c1", "by__1", "sl__2")
	seedMany(t, env, conv.Id, "by__1", "sl__2", 1, 3, 0)

	_, err := env.histSvc.GetHistory(ctx, "sl__2", conv.Id, 1, 20)
	require.NoError(t, err)

	// The read mark runs in the background.
	require.Eventually(t, func() bool {
		count, err := env.repos.Message.CountUnread(ctx, conv.Id, "sl__2")
		return err == nil && count == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetHistoryPageSizeBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := seedConversation(t, env, "c1", "by__1", "sl__2")
	seedMany(t, env, conv.Id, "by__1", "sl__2", 1, 3, 0)

	// Page and size fall back to sane defaults.
	hp, err := env.histSvc.GetHistory(ctx, "by__1", conv.Id, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, hp.Pagination.Page)
	assert.Equal(t, 20, hp.Pagination.PageSize)

	hp, err = env.histSvc.GetHistory(ctx, "by__1", conv.Id, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, 100, hp.Pagination.PageSize)
}
