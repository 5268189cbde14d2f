package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"marketchat/internal/middleware"
	"marketchat/internal/service"
	"marketchat/pkg/errcode"
	"marketchat/pkg/response"
)

// MessageHandler handles the message write path over HTTP
type MessageHandler struct {
	msgService *service.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(msgService *service.MessageService) *MessageHandler {
	return &MessageHandler{msgService: msgService}
}

// SendMessageRequest is the body of POST /chat/send
type SendMessageRequest struct {
	ReceiverId string   `json:"receiver_id"`
	Content    string   `json:"content"`
	Images     []string `json:"images"`
	ProductId  string   `json:"product_id"`
}

// SendMessage handles send-to-user requests, creating the conversation
// when none exists.
func (h *MessageHandler) SendMessage(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req SendMessageRequest
	if err := c.BindAndValidate(&req); err != nil || req.ReceiverId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	result, err := h.msgService.SendMessage(ctx, userId, req.ReceiverId, &service.SendRequest{
		Content:   req.Content,
		Images:    req.Images,
		ProductId: req.ProductId,
	})
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// SendToConversationRequest is the body of POST /chat/conversation/send
type SendToConversationRequest struct {
	ConversationId string   `json:"conversation_id"`
	Content        string   `json:"content"`
	Images         []string `json:"images"`
	ProductId      string   `json:"product_id"`
}

// SendToConversation handles sends into an existing conversation
func (h *MessageHandler) SendToConversation(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req SendToConversationRequest
	if err := c.BindAndValidate(&req); err != nil || req.ConversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	result, err := h.msgService.SendToConversation(ctx, userId, req.ConversationId, &service.SendRequest{
		Content:   req.Content,
		Images:    req.Images,
		ProductId: req.ProductId,
	})
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
