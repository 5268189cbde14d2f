package service

import (
	"context"
	"time"

	"github.com/mbeoliero/kit/log"

	"marketchat/internal/cache"
	"marketchat/internal/entity"
	"marketchat/internal/repository"
	"marketchat/pkg/constant"
	"marketchat/pkg/errcode"
	"marketchat/pkg/metrics"
)

// HistoryService serves the blended conversation history read path.
// Archived messages are items 1..archivedCount of the chronological
// sequence and live messages follow, so one page can straddle both
// storages without duplication or gaps.
type HistoryService struct {
	repos    *repository.Repositories
	cache    cache.Cache
	convSvc  *ConversationService
	reporter *metrics.Reporter
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(repos *repository.Repositories, c cache.Cache, convSvc *ConversationService, reporter *metrics.Reporter) *HistoryService {
	return &HistoryService{repos: repos, cache: c, convSvc: convSvc, reporter: reporter}
}

// GetHistory returns one page of conversation history for userId, oldest
// first and grouped by calendar day. Fetching history counts as reading:
// inbound messages are marked read in the background.
func (s *HistoryService) GetHistory(ctx context.Context, userId, convId string, page, pageSize int) (hp *entity.HistoryPage, err error) {
	start := time.Now()
	defer func() { s.observe("get_history", start, err) }()

	page, pageSize = normalizePage(page, pageSize)

	conv, err := s.convSvc.GetConversation(ctx, userId, convId)
	if err != nil {
		return nil, err
	}
	if !conv.IsActive {
		return nil, errcode.ErrConvInactive
	}

	if cached, ok := s.cache.GetHistoryPage(ctx, convId, page, pageSize); ok {
		s.markReadAsync(ctx, userId, conv.Id)
		return cached, nil
	}

	hp, err = s.loadPage(ctx, convId, page, pageSize)
	if err != nil {
		return nil, err
	}

	s.cache.SetHistoryPage(ctx, convId, page, pageSize, hp)
	s.markReadAsync(ctx, userId, conv.Id)
	return hp, nil
}

// loadPage assembles one chronological page across both storages
func (s *HistoryService) loadPage(ctx context.Context, convId string, page, pageSize int) (*entity.HistoryPage, error) {
	archivedCount, err := s.repos.Archive.CountByConversation(ctx, convId)
	if err != nil {
		return nil, errcode.ErrHistoryFailed.Wrap(err)
	}
	liveCount, err := s.repos.Message.CountByConversation(ctx, convId)
	if err != nil {
		return nil, errcode.ErrHistoryFailed.Wrap(err)
	}
	total := archivedCount + liveCount

	offset := int64(page-1) * int64(pageSize)
	infos := make([]*entity.MessageInfo, 0, pageSize)

	// Archive slice first.
	if offset < archivedCount {
		want := int64(pageSize)
		if remaining := archivedCount - offset; remaining < want {
			want = remaining
		}
		rows, err := s.repos.Archive.PageAsc(ctx, convId, int(offset), int(want))
		if err != nil {
			return nil, errcode.ErrHistoryFailed.Wrap(err)
		}
		for _, r := range rows {
			infos = append(infos, r.ToMessageInfo())
		}
	}

	// Fill the rest from live storage.
	if len(infos) < pageSize {
		liveOffset := offset - archivedCount
		if liveOffset < 0 {
			liveOffset = 0
		}
		if liveOffset < liveCount {
			rows, err := s.repos.Message.PageAsc(ctx, convId, int(liveOffset), pageSize-len(infos))
			if err != nil {
				return nil, errcode.ErrHistoryFailed.Wrap(err)
			}
			for _, r := range rows {
				infos = append(infos, r.ToMessageInfo())
			}
		}
	}

	return &entity.HistoryPage{
		Messages:   infos,
		Groups:     entity.GroupByDay(infos, time.Now()),
		Pagination: entity.NewPagination(page, pageSize, total),
	}, nil
}

// markReadAsync marks the page view as a read in the background so the
// fetch latency never pays for the write.
func (s *HistoryService) markReadAsync(ctx context.Context, userId, convId string) {
	go func() {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if _, err := s.convSvc.MarkRead(bg, userId, convId); err != nil {
			log.CtxWarn(bg, "mark read after history fetch failed: conv=%s, user=%s, err=%v", convId, userId, err)
		}
	}()
}

func (s *HistoryService) observe(op string, start time.Time, err error) {
	if s.reporter != nil {
		s.reporter.Observe(op, time.Since(start), err)
	}
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = constant.DefaultPageSize
	}
	if pageSize > constant.MaxPageSize {
		pageSize = constant.MaxPageSize
	}
	return page, pageSize
}
