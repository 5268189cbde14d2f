package service

import (
	"context"
	"sync"
	"time"

	"github.com/mbeoliero/kit/log"
	"gorm.io/gorm"

	"marketchat/internal/cache"
	"marketchat/internal/entity"
	"marketchat/internal/repository"
	"marketchat/pkg/errcode"
	"marketchat/pkg/idgen"
	"marketchat/pkg/metrics"
)

// ArchiveStats summarizes one archiver run
type ArchiveStats struct {
	Conversations int   `json:"conversations"`
	Archived      int64 `json:"archived"`
	Cutoff        int64 `json:"cutoff"`
}

// ArchiveService moves messages past the retention window into cold
// storage. Each batch is copied and deleted in one transaction, so a
// message is always in exactly one storage; the unique index on the
// original id makes re-running an interrupted batch harmless.
type ArchiveService struct {
	repos         *repository.Repositories
	cache         cache.Cache
	convSvc       *ConversationService
	reporter      *metrics.Reporter
	retentionDays int
	batchSize     int
	retryOpts     repository.RetryOptions
}

// NewArchiveService creates a new ArchiveService
func NewArchiveService(repos *repository.Repositories, c cache.Cache, convSvc *ConversationService,
	reporter *metrics.Reporter, retentionDays, batchSize int) *ArchiveService {
	return &ArchiveService{
		repos:         repos,
		cache:         c,
		convSvc:       convSvc,
		reporter:      reporter,
		retentionDays: retentionDays,
		batchSize:     batchSize,
		retryOpts:     repository.DefaultRetryOptions(),
	}
}

// ArchiveOldMessages runs one archiver pass over every conversation with
// messages older than the retention window.
func (s *ArchiveService) ArchiveOldMessages(ctx context.Context) (stats *ArchiveStats, err error) {
	start := time.Now()
	defer func() { s.observe("archive_run", start, err) }()

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays).UnixMilli()
	stats = &ArchiveStats{Cutoff: cutoff}

	convIds, err := s.repos.Message.DistinctConversationsOlderThan(ctx, cutoff)
	if err != nil {
		return nil, errcode.ErrArchiveFailed.Wrap(err)
	}

	for _, convId := range convIds {
		moved, err := s.archiveConversation(ctx, convId, cutoff)
		if err != nil {
			return stats, err
		}
		if moved > 0 {
			stats.Conversations++
			stats.Archived += moved
			s.cache.InvalidateConversation(ctx, convId)
		}
	}

	log.CtxInfo(ctx, "archive run done: conversations=%d, archived=%d", stats.Conversations, stats.Archived)
	return stats, nil
}

// archiveConversation drains one conversation's expired messages in
// batches until none remain.
func (s *ArchiveService) archiveConversation(ctx context.Context, convId string, cutoff int64) (int64, error) {
	var moved int64
	for {
		if err := ctx.Err(); err != nil {
			return moved, err
		}

		batch, err := s.repos.Message.FindOlderThan(ctx, convId, cutoff, s.batchSize)
		if err != nil {
			return moved, errcode.ErrArchiveFailed.Wrap(err)
		}
		if len(batch) == 0 {
			return moved, nil
		}

		archivedAt := entity.NowUnixMilli()
		rows := make([]*entity.ArchivedMessage, 0, len(batch))
		ids := make([]string, 0, len(batch))
		for _, m := range batch {
			archiveId, err := idgen.NextID()
			if err != nil {
				return moved, errcode.ErrArchiveFailed.Wrap(err)
			}
			rows = append(rows, entity.NewArchivedMessage(m, archiveId, archivedAt))
			ids = append(ids, m.Id)
		}

		err = repository.RunInTx(ctx, s.repos.DB, s.retryOpts, func(tx *gorm.DB) error {
			if err := s.repos.Archive.BulkInsert(tx, rows); err != nil {
				return err
			}
			return s.repos.Message.DeleteByIds(tx, ids)
		})
		if err != nil {
			return moved, errcode.ErrArchiveFailed.Wrap(err)
		}

		moved += int64(len(batch))
		if len(batch) < s.batchSize {
			return moved, nil
		}
	}
}

// GetArchivedMessages returns one chronological page of a conversation's
// cold storage only, for audit-style access.
func (s *ArchiveService) GetArchivedMessages(ctx context.Context, userId, convId string, page, pageSize int) (hp *entity.HistoryPage, err error) {
	start := time.Now()
	defer func() { s.observe("get_archived", start, err) }()

	page, pageSize = normalizePage(page, pageSize)

	if _, err = s.convSvc.GetConversation(ctx, userId, convId); err != nil {
		return nil, err
	}

	total, err := s.repos.Archive.CountByConversation(ctx, convId)
	if err != nil {
		return nil, errcode.ErrHistoryFailed.Wrap(err)
	}

	rows, err := s.repos.Archive.PageAsc(ctx, convId, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, errcode.ErrHistoryFailed.Wrap(err)
	}

	infos := make([]*entity.MessageInfo, 0, len(rows))
	for _, r := range rows {
		infos = append(infos, r.ToMessageInfo())
	}

	return &entity.HistoryPage{
		Messages:   infos,
		Groups:     entity.GroupByDay(infos, time.Now()),
		Pagination: entity.NewPagination(page, pageSize, total),
	}, nil
}

func (s *ArchiveService) observe(op string, start time.Time, err error) {
	if s.reporter != nil {
		s.reporter.Observe(op, time.Since(start), err)
	}
}

// Scheduler runs the archiver on a fixed interval. TryLock skips a tick
// when the previous run is still going instead of stacking runs.
type Scheduler struct {
	svc      *ArchiveService
	interval time.Duration
	mu       sync.Mutex
}

// NewScheduler creates a new Scheduler
func NewScheduler(svc *ArchiveService, interval time.Duration) *Scheduler {
	return &Scheduler{svc: svc, interval: interval}
}

// Run blocks until ctx is done, triggering one archiver pass per interval
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info("archive scheduler started: interval=%s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("archive scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce triggers a single pass unless one is already in flight
func (s *Scheduler) RunOnce(ctx context.Context) {
	if !s.mu.TryLock() {
		log.CtxWarn(ctx, "archive run skipped: previous run still in progress")
		return
	}
	defer s.mu.Unlock()

	if _, err := s.svc.ArchiveOldMessages(ctx); err != nil {
		log.CtxError(ctx, "archive run failed: %v", err)
	}
}
