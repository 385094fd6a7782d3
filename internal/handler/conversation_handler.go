package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/chatcore/internal/middleware"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/service"
)

// ConversationHandler handles conversation and group endpoints
type ConversationHandler struct {
	convs *service.ConversationService
}

func NewConversationHandler(convs *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convs: convs}
}

// StartConversation godoc
// @Summary Start a direct conversation
// @Description Creates the 1:1 conversation with a user. Returns 404 when the user does not exist or the conversation already exists.
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.StartConversationRequest true "Participant"
// @Success 200 {object} model.DataResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 422 {object} model.ErrorResponse
// @Router /conversations [post]
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	var req model.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	conv, err := h.convs.StartConversation(c.Request.Context(), middleware.UserID(c), req.ParticipantID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, conv)
}

// CreateGroup godoc
// @Summary Create a group conversation
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateGroupRequest true "Group"
// @Success 200 {object} model.DataResponse
// @Failure 422 {object} model.ErrorResponse
// @Router /groups [post]
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	var req model.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	conv, err := h.convs.CreateGroupChat(c.Request.Context(), middleware.UserID(c), req.Name, req.ParticipantIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, conv)
}

// UpdateGroup godoc
// @Summary Rename a group
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param body body model.UpdateGroupRequest true "New name"
// @Success 200 {object} model.DataResponse
// @Router /groups/{id} [put]
func (h *ConversationHandler) UpdateGroup(c *gin.Context) {
	id, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	var req model.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	conv, err := h.convs.UpdateGroup(c.Request.Context(), middleware.UserID(c), id, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, conv)
}

// DeleteGroup godoc
// @Summary Soft-delete a group
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.DataResponse
// @Router /groups/{id} [delete]
func (h *ConversationHandler) DeleteGroup(c *gin.Context) {
	id, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	if err := h.convs.DeleteGroup(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, emptyData)
}

// RestoreGroup godoc
// @Summary Restore a deleted group
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.DataResponse
// @Router /groups/{id}/restore [post]
func (h *ConversationHandler) RestoreGroup(c *gin.Context) {
	id, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	conv, err := h.convs.RestoreGroup(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, conv)
}

// GetGroupMembers godoc
// @Summary List group members
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.DataResponse
// @Router /groups/{id}/members [get]
func (h *ConversationHandler) GetGroupMembers(c *gin.Context) {
	id, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	users, err := h.convs.GetGroupMembers(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, users)
}

// AddGroupMembers godoc
// @Summary Add users to a group
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param body body model.AddGroupMembersRequest true "Users"
// @Success 200 {object} model.DataResponse
// @Router /groups/{id}/members [post]
func (h *ConversationHandler) AddGroupMembers(c *gin.Context) {
	id, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	var req model.AddGroupMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	conv, err := h.convs.AddGroupMembers(c.Request.Context(), middleware.UserID(c), id, req.UserIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, conv)
}

// RemoveGroupMember godoc
// @Summary Remove a user from a group
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Param userId path string true "User ID"
// @Success 200 {object} model.DataResponse
// @Router /groups/{id}/members/{userId} [delete]
func (h *ConversationHandler) RemoveGroupMember(c *gin.Context) {
	id, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "userId", "user")
	if !ok {
		return
	}

	conv, err := h.convs.RemoveGroupMember(c.Request.Context(), middleware.UserID(c), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, conv)
}

// GetAvailableUsers godoc
// @Summary Users that can be added to a group
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.DataResponse
// @Router /groups/{id}/available-users [get]
func (h *ConversationHandler) GetAvailableUsers(c *gin.Context) {
	id, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	users, err := h.convs.GetAvailableUsers(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, users)
}

// GetConversations godoc
// @Summary Get all conversations for the current user
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.DataResponse
// @Router /conversations [get]
func (h *ConversationHandler) GetConversations(c *gin.Context) {
	views, err := h.convs.GetAllConversations(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, views)
}

// GetConversation godoc
// @Summary Get a conversation
// @Tags Conversations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Conversation ID"
// @Success 200 {object} model.DataResponse
// @Router /conversations/{id} [get]
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	id, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	view, err := h.convs.GetConversation(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, view)
}
