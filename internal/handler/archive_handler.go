package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"marketchat/internal/middleware"
	"marketchat/internal/service"
	"marketchat/pkg/errcode"
	"marketchat/pkg/response"
)

// ArchiveHandler exposes cold storage reads and the manual archiver trigger
type ArchiveHandler struct {
	archService *service.ArchiveService
	scheduler   *service.Scheduler
}

// NewArchiveHandler creates a new ArchiveHandler
func NewArchiveHandler(archService *service.ArchiveService, scheduler *service.Scheduler) *ArchiveHandler {
	return &ArchiveHandler{archService: archService, scheduler: scheduler}
}

// GetArchived handles GET /chat/archived
func (h *ArchiveHandler) GetArchived(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	conversationId := c.Query("conversation_id")
	if conversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	page, pageSize := pageParams(c)
	hp, err := h.archService.GetArchivedMessages(ctx, userId, conversationId, page, pageSize)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, hp)
}

// RunArchive handles POST /admin/archive/run. The run happens in the
// background; overlapping triggers are skipped.
func (h *ArchiveHandler) RunArchive(ctx context.Context, c *app.RequestContext) {
	go h.scheduler.RunOnce(context.WithoutCancel(ctx))
	response.Success(ctx, c, map[string]string{"status": "started"})
}
