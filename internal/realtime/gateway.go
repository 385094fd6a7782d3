package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"github.com/quocanhngo/chatcore/pkg/metrics"
	"go.uber.org/zap"
)

const (
	DefaultQueueSize      = 1024
	defaultPublishTimeout = 5 * time.Second
)

// Gateway turns domain events into channel events and publishes them on the broker from a background worker.
// Enqueueing never blocks: when the queue is full the event is dropped and logged.
type Gateway struct {
	broker  Broker
	queue   chan Event
	timeout time.Duration
	log     *logger.Logger
}

func NewGateway(broker Broker, queueSize int, log *logger.Logger) *Gateway {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if log == nil {
		log = logger.Global()
	}
	return &Gateway{
		broker:  broker,
		queue:   make(chan Event, queueSize),
		timeout: defaultPublishTimeout,
		log:     log.Named("gateway"),
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left
func (g *Gateway) Run(ctx context.Context) {
	g.log.Info("realtime gateway started", zap.Int("queue_size", cap(g.queue)))
	for {
		select {
		case <-ctx.Done():
			g.flush()
			return
		case ev := <-g.queue:
			g.publish(ev)
		}
	}
}

func (g *Gateway) flush() {
	for {
		select {
		case ev := <-g.queue:
			g.publish(ev)
		default:
			return
		}
	}
}

func (g *Gateway) publish(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	if err := g.broker.Publish(ctx, ev); err != nil {
		metrics.RecordRealtime(ev.Name, metrics.OutcomeFailed)
		g.log.Error("realtime publish failed",
			zap.String("event", ev.Name),
			zap.String("channel", ev.Channel),
			zap.Error(err),
		)
		return
	}
	metrics.RecordRealtime(ev.Name, metrics.OutcomePublished)
}

func (g *Gateway) enqueue(ev Event) {
	select {
	case g.queue <- ev:
	default:
		metrics.RecordRealtime(ev.Name, metrics.OutcomeDropped)
		g.log.Warn("realtime queue full, event dropped",
			zap.String("event", ev.Name),
			zap.String("channel", ev.Channel),
		)
	}
}

// PublishMessageSent announces msg on the private chat channel of every recipient
func (g *Gateway) PublishMessageSent(_ context.Context, msg *model.Message, sender *model.User, recipients []uuid.UUID) {
	payload := MessageSentPayload{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Text:           msg.Text,
		DateTime:       msg.DateTime,
	}
	if sender != nil {
		payload.Sender = sender.Summary()
	} else {
		payload.Sender = model.UserSummary{ID: msg.SenderID}
	}

	for _, id := range recipients {
		if id == msg.SenderID {
			continue
		}
		ev, err := NewEvent(EventMessageSent, ChatChannel(id), payload)
		if err != nil {
			g.log.Error("marshal MessageSent", zap.Error(err))
			return
		}
		g.enqueue(ev)
	}
}

// PublishTypingStatus announces a typing change on the conversation channel
func (g *Gateway) PublishTypingStatus(_ context.Context, conversationID uuid.UUID, user *model.User, isTyping bool) {
	ev, err := NewEvent(EventUserTyping, ConversationChannel(conversationID), TypingPayload{
		ConversationID: conversationID,
		User:           user.Profile(),
		IsTyping:       isTyping,
	})
	if err != nil {
		g.log.Error("marshal UserTyping", zap.Error(err))
		return
	}
	g.enqueue(ev)
}
