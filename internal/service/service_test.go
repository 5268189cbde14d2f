package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketchat/internal/cache"
	"marketchat/internal/catalog"
	"marketchat/internal/entity"
	"marketchat/internal/ratelimit"
	"marketchat/internal/repository"
)

type testEnv struct {
	repos   *repository.Repositories
	cache   *cache.MemoryCache
	pusher  *fakePusher
	msgSvc  *MessageService
	convSvc *ConversationService
	histSvc *HistoryService
	archSvc *ArchiveService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entity.Conversation{},
		&entity.Message{},
		&entity.ArchivedMessage{},
	))

	repos := repository.NewRepositoriesWithDB(db, nil)
	memCache := cache.NewMemoryCache()
	provider := catalog.NewStaticProvider(
		&entity.ProductSnapshot{ProductId: "p42", Title: "Vintage Lamp", Price: 19900, ImageUrl: "https://img/lamp.jpg"},
		&entity.ProductSnapshot{ProductId: "p7", Title: "Oak Chair", Price: 4500},
	)
	pusher := &fakePusher{}

	msgSvc := NewMessageService(repos, memCache, provider, nil, nil)
	msgSvc.SetPusher(pusher)
	convSvc := NewConversationService(repos, memCache, nil)
	convSvc.SetPusher(pusher)
	histSvc := NewHistoryService(repos, memCache, convSvc, nil)
	archSvc := NewArchiveService(repos, memCache, convSvc, nil, 90, 500)

	return &testEnv{
		repos:   repos,
		cache:   memCache,
		pusher:  pusher,
		msgSvc:  msgSvc,
		convSvc: convSvc,
		histSvc: histSvc,
		archSvc: archSvc,
	}
}

type pushedMessage struct {
	UserId string
	Msg    *entity.MessageInfo
}

type pushedReceipt struct {
	UserId   string
	ConvId   string
	ReaderId string
	Count    int64
}

type fakePusher struct {
	mu       sync.Mutex
	messages []pushedMessage
	receipts []pushedReceipt
}

func (p *fakePusher) PushMessage(ctx context.Context, userId string, msg *entity.MessageInfo) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, pushedMessage{UserId: userId, Msg: msg})
	return true
}

func (p *fakePusher) PushReadReceipt(ctx context.Context, userId, convId, readerId string, count int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.receipts = append(p.receipts, pushedReceipt{UserId: userId, ConvId: convId, ReaderId: readerId, Count: count})
}

func (p *fakePusher) Messages() []pushedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pushedMessage(nil), p.messages...)
}

func (p *fakePusher) Receipts() []pushedReceipt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pushedReceipt(nil), p.receipts...)
}

// seedMessage inserts a message row directly, bypassing the send path,
// for tests that need explicit timestamps.
func seedMessage(t *testing.T, env *testEnv, id, convId, sender, receiver, content string, createdAt int64) {
	t.Helper()
	msg := &entity.Message{
		Id:             id,
		ConversationId: convId,
		SenderId:       sender,
		ReceiverId:     receiver,
		Content:        content,
		Status:         entity.MessageStatusSent,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	require.NoError(t, env.repos.Message.Create(env.repos.DB, msg))
}

func seedConversation(t *testing.T, env *testEnv, id, userA, userB string) *entity.Conversation {
	t.Helper()
	now := entity.NowUnixMilli()
	conv := &entity.Conversation{
		Id:        id,
		PairKey:   entity.GenPairKey(userA, userB),
		UserAId:   userA,
		UserBId:   userB,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, _, err := env.repos.Conversation.GetOrCreate(context.Background(), conv)
	require.NoError(t, err)
	return conv
}

func seedMany(t *testing.T, env *testEnv, convId, sender, receiver string, from, to int, baseTs int64) {
	t.Helper()
	for i := from; i <= to; i++ {
		seedMessage(t, env, fmt.Sprintf("m%04d", i), convId, sender, receiver, fmt.Sprintf("msg %d", i), baseTs+int64(i)*1000)
	}
}

func newLimitedMessageService(t *testing.T, env *testEnv, rps float64, burst int) *MessageService {
	t.Helper()
	provider := catalog.NewStaticProvider()
	svc := NewMessageService(env.repos, env.cache, provider, ratelimit.NewUserLimiter(rps, burst), nil)
	svc.SetPusher(env.pusher)
	return svc
}
