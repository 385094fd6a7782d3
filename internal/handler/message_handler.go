package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/chatcore/internal/middleware"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/service"
)

// MessageHandler handles message, read-receipt and typing endpoints
type MessageHandler struct {
	msgs   *service.MessageService
	typing *service.TypingService
}

func NewMessageHandler(msgs *service.MessageService, typing *service.TypingService) *MessageHandler {
	return &MessageHandler{msgs: msgs, typing: typing}
}

// SendMessage godoc
// @Summary Send a message
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.SendMessageRequest true "Message"
// @Success 200 {object} model.DataResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 422 {object} model.ErrorResponse
// @Router /messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	msg, err := h.msgs.SendMessage(c.Request.Context(), middleware.UserID(c), req.ConversationID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, msg)
}

// GetMessages godoc
// @Summary Get one page of messages
// @Description Page 1 holds the newest messages; each page is in chronological order.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param page query int false "Page (default 1)"
// @Param per_page query int false "Page size (default 20, max 100)"
// @Success 200 {object} model.DataResponse
// @Router /conversations/{id}/messages [get]
func (h *MessageHandler) GetMessages(c *gin.Context) {
	id, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	var req model.MessageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	msgs, err := h.msgs.GetConversationMessages(c.Request.Context(), middleware.UserID(c), id, req.Page, req.PerPage)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, msgs)
}

// MarkAsRead godoc
// @Summary Mark every message in a conversation as read
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.DataResponse
// @Router /conversations/{id}/read [post]
func (h *MessageHandler) MarkAsRead(c *gin.Context) {
	id, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	if _, err := h.msgs.MarkMessagesAsRead(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, emptyData)
}

// DeleteMessage godoc
// @Summary Soft-delete one of your messages
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Success 200 {object} model.DataResponse
// @Router /messages/{id} [delete]
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	id, ok := uuidParam(c, "id", "message")
	if !ok {
		return
	}
	if err := h.msgs.DeleteMessage(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, emptyData)
}

// RestoreMessage godoc
// @Summary Restore one of your deleted messages
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Success 200 {object} model.DataResponse
// @Router /messages/{id}/restore [post]
func (h *MessageHandler) RestoreMessage(c *gin.Context) {
	id, ok := uuidParam(c, "id", "message")
	if !ok {
		return
	}
	msg, err := h.msgs.RestoreMessage(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, msg)
}

// Typing godoc
// @Summary Broadcast a typing indicator
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.TypingRequest true "Typing state"
// @Success 200 {object} model.DataResponse
// @Router /typing [post]
func (h *MessageHandler) Typing(c *gin.Context) {
	var req model.TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.typing.BroadcastTyping(c.Request.Context(), middleware.UserID(c), req.ConversationID, req.IsTyping); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, emptyData)
}
