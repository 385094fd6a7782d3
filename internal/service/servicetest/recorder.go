package servicetest

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
)

// SentEvent is one recorded PublishMessageSent call
type SentEvent struct {
	Message    model.Message
	Sender     uuid.UUID
	Recipients []uuid.UUID
}

// TypingEvent is one recorded PublishTypingStatus call
type TypingEvent struct {
	ConversationID uuid.UUID
	User           uuid.UUID
	IsTyping       bool
}

// Publisher records realtime events instead of delivering them
type Publisher struct {
	mu     sync.Mutex
	sent   []SentEvent
	typing []TypingEvent
}

func (p *Publisher) PublishMessageSent(_ context.Context, msg *model.Message, sender *model.User, recipients []uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, SentEvent{
		Message:    *msg,
		Sender:     sender.ID,
		Recipients: append([]uuid.UUID(nil), recipients...),
	})
}

func (p *Publisher) PublishTypingStatus(_ context.Context, conversationID uuid.UUID, user *model.User, isTyping bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.typing = append(p.typing, TypingEvent{ConversationID: conversationID, User: user.ID, IsTyping: isTyping})
}

func (p *Publisher) Sent() []SentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SentEvent(nil), p.sent...)
}

func (p *Publisher) Typing() []TypingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]TypingEvent(nil), p.typing...)
}

// Notifier records push notification requests
type Notifier struct {
	mu         sync.Mutex
	recipients [][]uuid.UUID
}

func (n *Notifier) NotifyMessage(_ context.Context, _ *model.Message, _ *model.User, recipients []uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recipients = append(n.recipients, append([]uuid.UUID(nil), recipients...))
}

// Calls returns the recipients of every recorded notification
func (n *Notifier) Calls() [][]uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]uuid.UUID(nil), n.recipients...)
}
