package model

import (
	"time"

	"github.com/google/uuid"
)

// ========== Conversation DTOs ==========

type StartConversationRequest struct {
	ParticipantID uuid.UUID `json:"participant_id" binding:"required"`
}

type CreateGroupRequest struct {
	Name           string      `json:"name" binding:"required"`
	ParticipantIDs []uuid.UUID `json:"participant_ids" binding:"required,min=1"`
}

type UpdateGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

type AddGroupMembersRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
}

// ConversationView is the derived, per-viewer listing entry. Building it never mutates the conversation.
type ConversationView struct {
	ID          uuid.UUID `json:"id"`
	Creator     uuid.UUID `json:"creator"`
	IsGroup     bool      `json:"is_group"`
	GroupName   *string   `json:"group_name"`
	Participant any       `json:"participant"` // *UserSummary or GroupParty
	UnreadCount int64     `json:"unread_count"`
	LastMessage *string   `json:"last_message"`
	LastUpdated time.Time `json:"last_updated"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupParty is the "other party" display info of a group conversation
type GroupParty struct {
	Name              string  `json:"name"`
	Image             *string `json:"image"`
	IsGroup           bool    `json:"is_group"`
	ParticipantsCount int     `json:"participants_count"`
}

// ========== Message DTOs ==========

type SendMessageRequest struct {
	ConversationID uuid.UUID `json:"conversation_id" binding:"required"`
	Text           string    `json:"text" binding:"required"`
}

type MessageListRequest struct {
	Page    int `form:"page,default=1"`
	PerPage int `form:"per_page,default=20"`
}

type TypingRequest struct {
	ConversationID uuid.UUID `json:"conversation_id" binding:"required"`
	IsTyping       bool      `json:"is_typing"`
}

type RegisterDeviceRequest struct {
	FCMToken   string `json:"fcm_token" binding:"required"`
	DeviceType string `json:"device_type" binding:"required,oneof=android ios web"`
}

type ChannelAuthRequest struct {
	ChannelName string `json:"channel_name" binding:"required"`
}

// ========== Common ==========

type DataResponse struct {
	Data any `json:"data"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
