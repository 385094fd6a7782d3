package service

import (
	"context"

	"github.com/google/uuid"
)

// TypingService relays typing indicators to a conversation's channel
type TypingService struct {
	convs     ConversationStore
	users     UserStore
	publisher EventPublisher
}

func NewTypingService(convs ConversationStore, users UserStore, publisher EventPublisher) *TypingService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &TypingService{convs: convs, users: users, publisher: publisher}
}

// BroadcastTyping publishes currentUser's typing state to the conversation channel
func (s *TypingService) BroadcastTyping(ctx context.Context, currentUser, conversationID uuid.UUID, isTyping bool) error {
	conv, err := authorize(ctx, s.convs, conversationID, currentUser)
	if err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, currentUser)
	if err != nil {
		return storeError(err, "user not found")
	}
	s.publisher.PublishTypingStatus(ctx, conv.ID, user, isTyping)
	return nil
}
