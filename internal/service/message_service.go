package service

import (
	"context"
	"time"

	"github.com/mbeoliero/kit/log"
	"gorm.io/gorm"

	"marketchat/common"
	"marketchat/internal/cache"
	"marketchat/internal/catalog"
	"marketchat/internal/entity"
	"marketchat/internal/ratelimit"
	"marketchat/internal/repository"
	"marketchat/pkg/errcode"
	"marketchat/pkg/idgen"
	"marketchat/pkg/metrics"
)

// Pusher delivers real-time events to connected users. The gateway
// implements it and is attached after construction, which keeps the
// service layer free of a dependency on the gateway package.
type Pusher interface {
	// PushMessage delivers a new message to every connection of userId.
	// Returns true if at least one connection accepted it.
	PushMessage(ctx context.Context, userId string, msg *entity.MessageInfo) bool

	// PushReadReceipt tells userId that readerId has read their messages
	// in the conversation.
	PushReadReceipt(ctx context.Context, userId, convId, readerId string, count int64)
}

// SendRequest is one send call. Content and Images may both be present;
// each non-empty part becomes its own message row.
type SendRequest struct {
	Content   string   `json:"content"`
	Images    []string `json:"images"`
	ProductId string   `json:"product_id"`
}

// SendResult reports what a send call produced
type SendResult struct {
	ConversationId string                `json:"conversation_id"`
	Messages       []*entity.MessageInfo `json:"messages"`
}

// MessageService handles the message write path
type MessageService struct {
	repos     *repository.Repositories
	cache     cache.Cache
	catalog   catalog.Provider
	limiter   *ratelimit.UserLimiter
	reporter  *metrics.Reporter
	retryOpts repository.RetryOptions
	pusher    Pusher
}

// NewMessageService creates a new MessageService
func NewMessageService(repos *repository.Repositories, c cache.Cache, provider catalog.Provider,
	limiter *ratelimit.UserLimiter, reporter *metrics.Reporter) *MessageService {
	return &MessageService{
		repos:     repos,
		cache:     c,
		catalog:   provider,
		limiter:   limiter,
		reporter:  reporter,
		retryOpts: repository.DefaultRetryOptions(),
	}
}

// SetPusher attaches the real-time pusher
func (s *MessageService) SetPusher(p Pusher) {
	s.pusher = p
}

// SendMessage sends a message from senderId to receiverId, creating the
// conversation between them if none exists yet. An optional product id
// pins a catalog snapshot to the produced messages.
func (s *MessageService) SendMessage(ctx context.Context, senderId, receiverId string, req *SendRequest) (result *SendResult, err error) {
	start := time.Now()
	defer func() { s.observe("send_message", start, err) }()

	if senderId == receiverId {
		return nil, errcode.ErrSelfConversation
	}
	if err = validateParticipants(senderId, receiverId); err != nil {
		return nil, err
	}
	if err = s.checkRequest(senderId, req); err != nil {
		return nil, err
	}

	conv, err := s.resolveConversation(ctx, senderId, receiverId)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, conv, senderId, req)
}

// SendToConversation sends a message into an existing conversation
func (s *MessageService) SendToConversation(ctx context.Context, senderId, convId string, req *SendRequest) (result *SendResult, err error) {
	start := time.Now()
	defer func() { s.observe("send_to_conversation", start, err) }()

	if err = s.checkRequest(senderId, req); err != nil {
		return nil, err
	}

	conv, err := s.repos.Conversation.GetById(ctx, convId)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errcode.ErrConvNotFound
		}
		return nil, errcode.ErrSendFailed.Wrap(err)
	}
	if !conv.HasParticipant(senderId) {
		return nil, errcode.ErrNotParticipant
	}
	return s.send(ctx, conv, senderId, req)
}

// ConfirmDelivered advances a message to delivered after the gateway has
// handed it to a live connection. Returns the updated message when the
// transition actually happened; a message already read stays read.
func (s *MessageService) ConfirmDelivered(ctx context.Context, messageId string) (*entity.Message, bool, error) {
	affected, err := s.repos.Message.MarkDelivered(ctx, messageId, entity.NowUnixMilli())
	if err != nil {
		return nil, false, err
	}
	if affected == 0 {
		return nil, false, nil
	}

	msg, err := s.repos.Message.GetById(ctx, messageId)
	if err != nil {
		return nil, false, err
	}
	s.cache.InvalidateConversation(ctx, msg.ConversationId)
	return msg, true, nil
}

// validateParticipants checks both ids parse as marketplace identities
// and that the pair crosses the buyer/seller boundary.
func validateParticipants(senderId, receiverId string) error {
	var sender, receiver common.Actor
	if err := sender.FromChatUserId(senderId); err != nil {
		return errcode.ErrInvalidParam.Wrap(err)
	}
	if err := receiver.FromChatUserId(receiverId); err != nil {
		return errcode.ErrInvalidParam.Wrap(err)
	}
	if sender.Role == receiver.Role {
		return errcode.ErrSameRole
	}
	return nil
}

func (s *MessageService) checkRequest(senderId string, req *SendRequest) error {
	if req == nil || (req.Content == "" && len(req.Images) == 0) {
		return errcode.ErrEmptyMessage
	}
	if s.limiter != nil && !s.limiter.Allow(senderId) {
		return errcode.ErrTooManyRequests
	}
	return nil
}

// resolveConversation finds or creates the thread between the two users.
// Creation is idempotent under concurrency: the pair key's unique index
// ensures both racers end up on the same row.
func (s *MessageService) resolveConversation(ctx context.Context, senderId, receiverId string) (*entity.Conversation, error) {
	pairKey := entity.GenPairKey(senderId, receiverId)

	conv, err := s.repos.Conversation.GetByPairKey(ctx, pairKey)
	if err == nil {
		return conv, nil
	}
	if !repository.IsNotFound(err) {
		return nil, errcode.ErrSendFailed.Wrap(err)
	}

	id, err := idgen.NextID()
	if err != nil {
		return nil, errcode.ErrSendFailed.Wrap(err)
	}

	userA, userB, _ := entity.SplitPairKey(pairKey)
	now := entity.NowUnixMilli()
	fresh := &entity.Conversation{
		Id:        id,
		PairKey:   pairKey,
		UserAId:   userA,
		UserBId:   userB,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	conv, created, err := s.repos.Conversation.GetOrCreate(ctx, fresh)
	if err != nil {
		return nil, errcode.ErrSendFailed.Wrap(err)
	}
	if created {
		log.CtxInfo(ctx, "conversation created: id=%s, pair=%s", conv.Id, pairKey)
	}
	return conv, nil
}

func (s *MessageService) send(ctx context.Context, conv *entity.Conversation, senderId string, req *SendRequest) (*SendResult, error) {
	if !conv.IsActive {
		return nil, errcode.ErrConvInactive
	}
	receiverId := conv.PeerOf(senderId)

	var snapshot *entity.ProductSnapshot
	if req.ProductId != "" {
		snap, err := s.catalog.GetProduct(ctx, req.ProductId)
		if err != nil {
			return nil, err
		}
		snapshot = snap
	}

	now := entity.NowUnixMilli()
	msgs, err := buildMessages(conv.Id, senderId, receiverId, req, snapshot, now)
	if err != nil {
		return nil, err
	}

	products := conv.Products
	productsChanged := false
	if snapshot != nil && !conv.HasProduct(snapshot.ProductId) {
		products = append(products, entity.ProductEntry{ProductId: snapshot.ProductId, AddedAt: now})
		productsChanged = true
	}

	last := msgs[len(msgs)-1]
	err = repository.RunInTx(ctx, s.repos.DB, s.retryOpts, func(tx *gorm.DB) error {
		if err := s.repos.Message.Create(tx, msgs...); err != nil {
			return err
		}
		if productsChanged {
			if err := s.repos.Conversation.UpdateProducts(tx, conv.Id, products, now); err != nil {
				return err
			}
		}
		return s.repos.Conversation.UpdateLastMessage(tx, conv.Id, last.Id, now)
	})
	if err != nil {
		return nil, err
	}

	// Post-commit: drop stale pages, bump the recipient's counter and
	// hand the new rows to the gateway.
	s.cache.InvalidateConversation(ctx, conv.Id)
	s.cache.IncrUnread(ctx, conv.Id, receiverId, int64(len(msgs)))

	infos := make([]*entity.MessageInfo, 0, len(msgs))
	for _, m := range msgs {
		infos = append(infos, m.ToMessageInfo())
	}
	if s.pusher != nil {
		for _, info := range infos {
			s.pusher.PushMessage(ctx, receiverId, info)
		}
	}

	log.CtxInfo(ctx, "messages sent: conv=%s, sender=%s, count=%d", conv.Id, senderId, len(msgs))
	return &SendResult{ConversationId: conv.Id, Messages: infos}, nil
}

// buildMessages splits one send call into rows. Text and images become
// separate siblings sharing the product snapshot; the image row comes
// last so it ends up as the conversation's latest-message pointer.
func buildMessages(convId, senderId, receiverId string, req *SendRequest, snapshot *entity.ProductSnapshot, now int64) ([]*entity.Message, error) {
	var msgs []*entity.Message

	if req.Content != "" {
		id, err := idgen.NextID()
		if err != nil {
			return nil, errcode.ErrSendFailed.Wrap(err)
		}
		msgs = append(msgs, &entity.Message{
			Id:             id,
			ConversationId: convId,
			SenderId:       senderId,
			ReceiverId:     receiverId,
			Content:        req.Content,
			ProductRef:     snapshot,
			Status:         entity.MessageStatusSent,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	if len(req.Images) > 0 {
		id, err := idgen.NextID()
		if err != nil {
			return nil, errcode.ErrSendFailed.Wrap(err)
		}
		msgs = append(msgs, &entity.Message{
			Id:             id,
			ConversationId: convId,
			SenderId:       senderId,
			ReceiverId:     receiverId,
			Images:         req.Images,
			ProductRef:     snapshot,
			Status:         entity.MessageStatusSent,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return msgs, nil
}

func (s *MessageService) observe(op string, start time.Time, err error) {
	if s.reporter != nil {
		s.reporter.Observe(op, time.Since(start), err)
	}
}
