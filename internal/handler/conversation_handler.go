package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"marketchat/internal/middleware"
	"marketchat/internal/service"
	"marketchat/pkg/errcode"
	"marketchat/pkg/response"
)

// ConversationHandler handles conversation listing, history and read state
type ConversationHandler struct {
	convService *service.ConversationService
	histService *service.HistoryService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(convService *service.ConversationService, histService *service.HistoryService) *ConversationHandler {
	return &ConversationHandler{convService: convService, histService: histService}
}

// GetConversations handles GET /chat/conversations
func (h *ConversationHandler) GetConversations(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	page, pageSize := pageParams(c)
	infos, pg, err := h.convService.GetConversationsFor(ctx, userId, page, pageSize)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{
		"conversations": infos,
		"pagination":    pg,
	})
}

// GetHistory handles GET /chat/history
func (h *ConversationHandler) GetHistory(ctx context.Context, c *app.RequestContext) {
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
	hp, err := h.histService.GetHistory(ctx, userId, conversationId, page, pageSize)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, hp)
}

// MarkReadRequest is the body of POST /chat/mark_read
type MarkReadRequest struct {
	ConversationId string `json:"conversation_id"`
}

// MarkRead handles POST /chat/mark_read
func (h *ConversationHandler) MarkRead(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req MarkReadRequest
	if err := c.BindAndValidate(&req); err != nil || req.ConversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	count, err := h.convService.MarkRead(ctx, userId, req.ConversationId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{
		"conversation_id": req.ConversationId,
		"count":           count,
	})
}

// pageParams reads pagination query parameters
func pageParams(c *app.RequestContext) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	return page, pageSize
}
