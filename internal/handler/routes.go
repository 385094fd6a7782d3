package handler

import (
	"github.com/gin-gonic/gin"
)

// Routes groups the handlers mounted under /api/v1
type Routes struct {
	Conversations *ConversationHandler
	Messages      *MessageHandler
	Devices       *DeviceHandler
	Broadcast     *BroadcastHandler
}

// Register mounts every authenticated route on api; auth must already be applied to the group
func (r Routes) Register(api *gin.RouterGroup) {
	// Conversations
	api.GET("/conversations", r.Conversations.GetConversations)
	api.POST("/conversations", r.Conversations.StartConversation)
	api.GET("/conversations/:id", r.Conversations.GetConversation)

	// Groups
	api.POST("/groups", r.Conversations.CreateGroup)
	api.PUT("/groups/:id", r.Conversations.UpdateGroup)
	api.DELETE("/groups/:id", r.Conversations.DeleteGroup)
	api.POST("/groups/:id/restore", r.Conversations.RestoreGroup)
	api.GET("/groups/:id/members", r.Conversations.GetGroupMembers)
	api.POST("/groups/:id/members", r.Conversations.AddGroupMembers)
	api.DELETE("/groups/:id/members/:userId", r.Conversations.RemoveGroupMember)
	api.GET("/groups/:id/available-users", r.Conversations.GetAvailableUsers)

	// Messages
	api.POST("/messages", r.Messages.SendMessage)
	api.DELETE("/messages/:id", r.Messages.DeleteMessage)
	api.POST("/messages/:id/restore", r.Messages.RestoreMessage)
	api.GET("/conversations/:id/messages", r.Messages.GetMessages)
	api.POST("/conversations/:id/read", r.Messages.MarkAsRead)
	api.POST("/typing", r.Messages.Typing)

	// Devices
	api.POST("/devices", r.Devices.RegisterDevice)

	// Realtime
	api.POST("/broadcasting/auth", r.Broadcast.Authorize)
}
