package realtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/apperror"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authorizeFunc func(ctx context.Context, conversationID, userID uuid.UUID) (*model.Conversation, error)

func (f authorizeFunc) Authorize(ctx context.Context, conversationID, userID uuid.UUID) (*model.Conversation, error) {
	return f(ctx, conversationID, userID)
}

func TestAuthorizerChatChannel(t *testing.T) {
	a := NewAuthorizer(authorizeFunc(func(context.Context, uuid.UUID, uuid.UUID) (*model.Conversation, error) {
		t.Fatal("chat channels never consult conversations")
		return nil, nil
	}), logger.Nop())

	me, other := uuid.New(), uuid.New()

	ch, err := a.Authorize(context.Background(), me, "private-chat."+me.String())
	require.NoError(t, err)
	assert.Equal(t, ChatChannel(me), ch)

	_, err = a.Authorize(context.Background(), me, "chat."+other.String())
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = a.Authorize(context.Background(), me, "garbage")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestAuthorizerConversationChannel(t *testing.T) {
	member, stranger := uuid.New(), uuid.New()
	convID, missing := uuid.New(), uuid.New()

	a := NewAuthorizer(authorizeFunc(func(_ context.Context, conversationID, userID uuid.UUID) (*model.Conversation, error) {
		if conversationID == missing {
			return nil, apperror.NotFound("conversation not found")
		}
		if userID != member {
			return nil, apperror.Forbidden("not a member")
		}
		return &model.Conversation{ID: conversationID}, nil
	}), logger.Nop())

	ch, err := a.Authorize(context.Background(), member, "conversation."+convID.String())
	require.NoError(t, err)
	assert.Equal(t, ConversationChannel(convID), ch)

	_, err = a.Authorize(context.Background(), stranger, "conversation."+convID.String())
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = a.Authorize(context.Background(), member, "conversation."+missing.String())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}
