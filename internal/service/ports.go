package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
)

// UserStore is the slice of the user repository the services need
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error)
	ListExcluding(ctx context.Context, ids []uuid.UUID) ([]model.User, error)
	AddDevice(ctx context.Context, userID uuid.UUID, token, deviceType string) error
}

// ConversationStore persists conversations and group members
type ConversationStore interface {
	Create(ctx context.Context, rec *model.ConversationRecord) (*model.Conversation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	FindByIDWithDeleted(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	FindDirect(ctx context.Context, userA, userB uuid.UUID) (*model.Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Conversation, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	AddMembers(ctx context.Context, conversationID uuid.UUID, userIDs []uuid.UUID) (int64, error)
	RemoveMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
}

// MessageStore persists messages and read statuses
type MessageStore interface {
	CreateAndTouch(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id uuid.UUID, withDeleted bool) (*model.Message, error)
	ListPage(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]model.Message, error)
	LastMessages(ctx context.Context, conversationIDs []uuid.UUID) (map[uuid.UUID]model.Message, error)
	CountUnread(ctx context.Context, conversationID, userID uuid.UUID) (int64, error)
	UnreadCounts(ctx context.Context, conversationIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int64, error)
	MarkRead(ctx context.Context, conversationID, userID uuid.UUID, readAt time.Time) (int64, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
}

// EventPublisher hands realtime events to the gateway. Calls never block on delivery and never fail the caller.
type EventPublisher interface {
	PublishMessageSent(ctx context.Context, msg *model.Message, sender *model.User, recipients []uuid.UUID)
	PublishTypingStatus(ctx context.Context, conversationID uuid.UUID, user *model.User, isTyping bool)
}

// Notifier pushes a new-message notification to recipients' devices
type Notifier interface {
	NotifyMessage(ctx context.Context, msg *model.Message, sender *model.User, recipients []uuid.UUID)
}

type nopPublisher struct{}

func (nopPublisher) PublishMessageSent(context.Context, *model.Message, *model.User, []uuid.UUID) {}
func (nopPublisher) PublishTypingStatus(context.Context, uuid.UUID, *model.User, bool)           {}

type nopNotifier struct{}

func (nopNotifier) NotifyMessage(context.Context, *model.Message, *model.User, []uuid.UUID) {}
