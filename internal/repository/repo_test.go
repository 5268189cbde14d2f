package repository

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketchat/internal/entity"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entity.Conversation{},
		&entity.Message{},
		&entity.ArchivedMessage{},
	)
	require.NoError(t, err)
	return db
}

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()
	return NewRepositoriesWithDB(newTestDB(t), nil)
}

func newConversation(id, userA, userB string) *entity.Conversation {
	now := entity.NowUnixMilli()
	return &entity.Conversation{
		Id:        id,
		PairKey:   entity.GenPairKey(userA, userB),
		UserAId:   userA,
		UserBId:   userB,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newMessage(id, convId, sender, receiver, content string, createdAt int64) *entity.Message {
	return &entity.Message{
		Id:             id,
		ConversationId: convId,
		SenderId:       sender,
		ReceiverId:     receiver,
		Content:        content,
		Status:         entity.MessageStatusSent,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}
