package service

import (
	"context"
	"time"

	"github.com/mbeoliero/kit/log"

	"marketchat/internal/cache"
	"marketchat/internal/entity"
	"marketchat/internal/repository"
	"marketchat/pkg/errcode"
	"marketchat/pkg/metrics"
)

// ConversationService handles conversation listing and read state
type ConversationService struct {
	repos    *repository.Repositories
	cache    cache.Cache
	reporter *metrics.Reporter
	pusher   Pusher
}

// NewConversationService creates a new ConversationService
func NewConversationService(repos *repository.Repositories, c cache.Cache, reporter *metrics.Reporter) *ConversationService {
	return &ConversationService{repos: repos, cache: c, reporter: reporter}
}

// SetPusher attaches the real-time pusher
func (s *ConversationService) SetPusher(p Pusher) {
	s.pusher = p
}

// GetConversationsFor returns the user's conversations ordered by most
// recent activity, each with its latest message and unread count.
func (s *ConversationService) GetConversationsFor(ctx context.Context, userId string, page, pageSize int) (infos []*entity.ConversationInfo, pg entity.Pagination, err error) {
	start := time.Now()
	defer func() { s.observe("list_conversations", start, err) }()

	page, pageSize = normalizePage(page, pageSize)

	convs, total, err := s.repos.Conversation.ListForUser(ctx, userId, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, pg, errcode.ErrInternalServer.Wrap(err)
	}

	infos = make([]*entity.ConversationInfo, 0, len(convs))
	for _, conv := range convs {
		info := &entity.ConversationInfo{
			Id:         conv.Id,
			PeerUserId: conv.PeerOf(userId),
			Products:   conv.Products,
			UpdatedAt:  conv.UpdatedAt,
		}

		if conv.LastMessageId != "" {
			msg, err := s.repos.Message.GetById(ctx, conv.LastMessageId)
			if err == nil {
				info.LastMessage = msg.ToMessageInfo()
			} else if !repository.IsNotFound(err) {
				return nil, pg, errcode.ErrInternalServer.Wrap(err)
			}
			// Not found means the pointer target was archived; the
			// preview is simply omitted.
		}

		unread, err := s.UnreadCount(ctx, conv.Id, userId)
		if err != nil {
			return nil, pg, err
		}
		info.UnreadCount = unread

		infos = append(infos, info)
	}

	return infos, entity.NewPagination(page, pageSize, total), nil
}

// UnreadCount returns the user's unread count for one conversation.
// Counter misses recompute from the store and re-seed the cache, which
// heals any drift the counter may have accumulated.
func (s *ConversationService) UnreadCount(ctx context.Context, convId, userId string) (int64, error) {
	if val, ok := s.cache.GetUnread(ctx, convId, userId); ok {
		return val, nil
	}

	count, err := s.repos.Message.CountUnread(ctx, convId, userId)
	if err != nil {
		return 0, errcode.ErrInternalServer.Wrap(err)
	}
	s.cache.SetUnread(ctx, convId, userId, count)
	return count, nil
}

// MarkRead marks every message addressed to userId in the conversation as
// read and notifies the counterparty. Idempotent: a second call affects
// zero rows and sends no receipt.
func (s *ConversationService) MarkRead(ctx context.Context, userId, convId string) (affected int64, err error) {
	start := time.Now()
	defer func() { s.observe("mark_read", start, err) }()

	conv, err := s.repos.Conversation.GetById(ctx, convId)
	if err != nil {
		if repository.IsNotFound(err) {
			return 0, errcode.ErrConvNotFound
		}
		return 0, errcode.ErrInternalServer.Wrap(err)
	}
	if !conv.HasParticipant(userId) {
		return 0, errcode.ErrNotParticipant
	}

	affected, err = s.repos.Message.MarkConversationRead(ctx, convId, userId, entity.NowUnixMilli())
	if err != nil {
		return 0, errcode.ErrInternalServer.Wrap(err)
	}

	s.cache.ResetUnread(ctx, convId, userId)
	if affected > 0 {
		// Cached pages hold the old statuses.
		s.cache.InvalidateConversation(ctx, convId)
		if s.pusher != nil {
			s.pusher.PushReadReceipt(ctx, conv.PeerOf(userId), convId, userId, affected)
		}
		log.CtxInfo(ctx, "conversation read: conv=%s, reader=%s, count=%d", convId, userId, affected)
	}
	return affected, nil
}

// PeerIdsFor returns the user's counterparties. The gateway uses this to
// scope presence fan-out to users who actually share a conversation.
func (s *ConversationService) PeerIdsFor(ctx context.Context, userId string) ([]string, error) {
	return s.repos.Conversation.ListPeerIds(ctx, userId)
}

// GetConversation loads one conversation and verifies membership
func (s *ConversationService) GetConversation(ctx context.Context, userId, convId string) (*entity.Conversation, error) {
	conv, err := s.repos.Conversation.GetById(ctx, convId)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errcode.ErrConvNotFound
		}
		return nil, errcode.ErrInternalServer.Wrap(err)
	}
	if !conv.HasParticipant(userId) {
		return nil, errcode.ErrNotParticipant
	}
	return conv, nil
}

func (s *ConversationService) observe(op string, start time.Time, err error) {
	if s.reporter != nil {
		s.reporter.Observe(op, time.Since(start), err)
	}
}
