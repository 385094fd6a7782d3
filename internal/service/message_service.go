package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/apperror"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"github.com/quocanhngo/chatcore/pkg/metrics"
	"go.uber.org/zap"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// MessageService handles sending, listing and read tracking of messages
type MessageService struct {
	convs     ConversationStore
	msgs      MessageStore
	users     UserStore
	publisher EventPublisher
	notifier  Notifier
	log       *logger.Logger
	now       func() time.Time
}

func NewMessageService(
	convs ConversationStore,
	msgs MessageStore,
	users UserStore,
	publisher EventPublisher,
	notifier Notifier,
	log *logger.Logger,
) *MessageService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = logger.Global()
	}
	return &MessageService{
		convs:     convs,
		msgs:      msgs,
		users:     users,
		publisher: publisher,
		notifier:  notifier,
		log:       log.Named("messages"),
		now:       time.Now,
	}
}

// SendMessage stores a message from currentUser and announces it to the other members
func (s *MessageService) SendMessage(ctx context.Context, currentUser, conversationID uuid.UUID, text string) (*model.MessageView, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperror.Validation("text is required")
	}
	conv, err := authorize(ctx, s.convs, conversationID, currentUser)
	if err != nil {
		return nil, err
	}

	sender, err := s.users.FindByID(ctx, currentUser)
	if err != nil {
		return nil, storeError(err, "user not found")
	}

	msg := &model.Message{
		ConversationID: conv.ID,
		SenderID:       currentUser,
		ReceiverID:     conv.Counterpart(currentUser),
		Text:           text,
		DateTime:       s.now(),
	}
	if err := s.msgs.CreateAndTouch(ctx, msg); err != nil {
		return nil, apperror.Internal(err)
	}
	msg.Sender = sender

	recipients := recipientsOf(conv, currentUser)
	s.publisher.PublishMessageSent(ctx, msg, sender, recipients)
	s.notifier.NotifyMessage(ctx, msg, sender, recipients)

	metrics.RecordMessage(string(conv.Kind))
	s.log.Debug("message sent",
		zap.String("message_id", msg.ID.String()),
		zap.String("conversation_id", conv.ID.String()),
		zap.Int("recipients", len(recipients)),
	)

	view := msg.ViewFor(currentUser)
	return &view, nil
}

// recipientsOf returns every member except the sender, in member order
func recipientsOf(conv *model.Conversation, sender uuid.UUID) []uuid.UUID {
	members := conv.Participants()
	out := make([]uuid.UUID, 0, len(members))
	for _, id := range members {
		if id != sender {
			out = append(out, id)
		}
	}
	return out
}

// NormalizePage applies the paging defaults: page < 1 becomes 1, perPage defaults to 20 and is capped at 100
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// GetConversationMessages returns one page of history. Page 1 holds the newest messages;
// each page is in chronological order.
func (s *MessageService) GetConversationMessages(ctx context.Context, currentUser, conversationID uuid.UUID, page, perPage int) ([]model.MessageView, error) {
	if _, err := authorize(ctx, s.convs, conversationID, currentUser); err != nil {
		return nil, err
	}

	page, perPage = NormalizePage(page, perPage)
	msgs, err := s.msgs.ListPage(ctx, conversationID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	views := make([]model.MessageView, len(msgs))
	for i := range msgs {
		views[len(msgs)-1-i] = msgs[i].ViewFor(currentUser)
	}
	return views, nil
}

// MarkMessagesAsRead records a read status for every message from others the user has not read yet.
// Calling it again is a no-op. Returns the number of statuses created.
func (s *MessageService) MarkMessagesAsRead(ctx context.Context, currentUser, conversationID uuid.UUID) (int64, error) {
	if _, err := authorize(ctx, s.convs, conversationID, currentUser); err != nil {
		return 0, err
	}
	n, err := s.msgs.MarkRead(ctx, conversationID, currentUser, s.now())
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return n, nil
}

// UnreadCount counts messages from others the user has not read
func (s *MessageService) UnreadCount(ctx context.Context, currentUser, conversationID uuid.UUID) (int64, error) {
	if _, err := authorize(ctx, s.convs, conversationID, currentUser); err != nil {
		return 0, err
	}
	n, err := s.msgs.CountUnread(ctx, conversationID, currentUser)
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return n, nil
}

// senderMessage loads a message and checks that currentUser sent it
func (s *MessageService) senderMessage(ctx context.Context, currentUser, messageID uuid.UUID, withDeleted bool) (*model.Message, error) {
	if messageID == uuid.Nil {
		return nil, apperror.Validation("message id is required")
	}
	msg, err := s.msgs.FindByID(ctx, messageID, withDeleted)
	if err != nil {
		return nil, storeError(err, "message not found")
	}
	if msg.SenderID != currentUser {
		return nil, apperror.Forbidden("only the sender can change this message")
	}
	return msg, nil
}

// DeleteMessage soft-deletes a message. Only its sender may delete it.
func (s *MessageService) DeleteMessage(ctx context.Context, currentUser, messageID uuid.UUID) error {
	msg, err := s.senderMessage(ctx, currentUser, messageID, false)
	if err != nil {
		return err
	}
	if err := s.msgs.SoftDelete(ctx, msg.ID); err != nil {
		return storeError(err, "message not found")
	}
	return nil
}

// RestoreMessage undoes DeleteMessage
func (s *MessageService) RestoreMessage(ctx context.Context, currentUser, messageID uuid.UUID) (*model.MessageView, error) {
	msg, err := s.senderMessage(ctx, currentUser, messageID, true)
	if err != nil {
		return nil, err
	}
	if msg.DeletedAt.Valid {
		if err := s.msgs.Restore(ctx, msg.ID); err != nil {
			return nil, storeError(err, "message not found")
		}
	}
	restored, err := s.msgs.FindByID(ctx, msg.ID, false)
	if err != nil {
		return nil, storeError(err, "message not found")
	}
	view := restored.ViewFor(currentUser)
	return &view, nil
}
