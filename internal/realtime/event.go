package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
)

// Event names as seen by clients
const (
	EventMessageSent = "MessageSent"
	EventUserTyping  = "UserTyping"

	EventSubscribed        = "subscription_succeeded"
	EventSubscriptionError = "subscription_error"
	EventUnsubscribed      = "unsubscribed"
	EventError             = "error"
)

// Event is one delivery on one channel. It is both the broker payload and the outbound websocket frame.
type Event struct {
	Name    string          `json:"event"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// MessageSentPayload is the data of a MessageSent event
type MessageSentPayload struct {
	ID             uuid.UUID         `json:"id"`
	ConversationID uuid.UUID         `json:"conversation_id"`
	Text           string            `json:"text"`
	DateTime       time.Time         `json:"date_time"`
	Sender         model.UserSummary `json:"sender"`
}

// TypingPayload is the data of a UserTyping event
type TypingPayload struct {
	ConversationID uuid.UUID         `json:"conversation_id"`
	User           model.UserProfile `json:"user"`
	IsTyping       bool              `json:"is_typing"`
}

// ErrorPayload is the data of subscription_error and error frames
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewEvent marshals data into an Event
func NewEvent(name string, channel Channel, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Channel: channel.String(), Data: raw}, nil
}

// InboundFrame is a client-to-server websocket frame
type InboundFrame struct {
	Type           string    `json:"type"` // subscribe, unsubscribe, typing
	Channel        string    `json:"channel,omitempty"`
	ConversationID uuid.UUID `json:"conversation_id,omitempty"`
	IsTyping       bool      `json:"is_typing,omitempty"`
}

const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameTyping      = "typing"
)
