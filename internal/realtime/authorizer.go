package realtime

import (
	"context"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/apperror"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"go.uber.org/zap"
)

// ConversationAuthorizer loads a live conversation and checks membership
type ConversationAuthorizer interface {
	Authorize(ctx context.Context, conversationID, userID uuid.UUID) (*model.Conversation, error)
}

// Authorizer decides whether a user may listen on a channel
type Authorizer struct {
	convs ConversationAuthorizer
	log   *logger.Logger
}

func NewAuthorizer(convs ConversationAuthorizer, log *logger.Logger) *Authorizer {
	if log == nil {
		log = logger.Global()
	}
	return &Authorizer{convs: convs, log: log.Named("channel_auth")}
}

// Authorize returns the parsed channel when userID may subscribe to it.
// chat.{id} is open only to that user; conversation.{id} only to members.
func (a *Authorizer) Authorize(ctx context.Context, userID uuid.UUID, channelName string) (Channel, error) {
	ch, err := ParseChannel(channelName)
	if err != nil {
		return Channel{}, apperror.Forbidden("unknown channel")
	}

	switch ch.Kind {
	case ChannelChat:
		if ch.ID != userID {
			return Channel{}, apperror.Forbidden("cannot listen on another user's channel")
		}
		return ch, nil

	case ChannelConversation:
		if _, err := a.convs.Authorize(ctx, ch.ID, userID); err != nil {
			if apperror.KindOf(err) == apperror.KindNotFound {
				a.log.Warn("channel auth for unknown conversation",
					zap.String("channel", ch.String()),
					zap.String("user_id", userID.String()),
				)
			}
			return Channel{}, err
		}
		return ch, nil
	}

	return Channel{}, apperror.Forbidden("unknown channel")
}
