package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageOwnership annotates a message relative to the viewer
type MessageOwnership string

const (
	MessageMine   MessageOwnership = "mine"
	MessageTheirs MessageOwnership = "theirs"
)

// Message is a chat message. ReceiverID is nil for group messages.
type Message struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationID uuid.UUID      `json:"conversation_id" gorm:"type:uuid;not null;index:idx_messages_conv_created,priority:1"`
	SenderID       uuid.UUID      `json:"sender_id" gorm:"type:uuid;not null;index"`
	ReceiverID     *uuid.UUID     `json:"receiver_id" gorm:"type:uuid;index"`
	Text           string         `json:"text" gorm:"type:text;not null"`
	DateTime       time.Time      `json:"date_time" gorm:"not null"` // logical send time
	CreatedAt      time.Time      `json:"created_at" gorm:"index:idx_messages_conv_created,priority:2"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Sender   *User `json:"-" gorm:"foreignKey:SenderID"`
	Receiver *User `json:"-" gorm:"foreignKey:ReceiverID"`
}

// ReadStatus records that UserID has read MessageID. The composite key keeps it unique per pair.
type ReadStatus struct {
	MessageID uuid.UUID `json:"message_id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey;index"`
	ReadAt    time.Time `json:"read_at" gorm:"not null"`
}

func (ReadStatus) TableName() string {
	return "message_read_status"
}

// MessageView is a message as seen by one viewer
type MessageView struct {
	ID             uuid.UUID        `json:"id"`
	ConversationID uuid.UUID        `json:"conversation_id"`
	SenderID       uuid.UUID        `json:"sender_id"`
	ReceiverID     *uuid.UUID       `json:"receiver_id"`
	Text           string           `json:"text"`
	DateTime       time.Time        `json:"date_time"`
	CreatedAt      time.Time        `json:"created_at"`
	Sender         *UserSummary     `json:"sender,omitempty"`
	Receiver       *UserSummary     `json:"receiver,omitempty"`
	Type           MessageOwnership `json:"type"`
}

// ViewFor annotates the message for viewerID
func (m *Message) ViewFor(viewerID uuid.UUID) MessageView {
	v := MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Text:           m.Text,
		DateTime:       m.DateTime,
		CreatedAt:      m.CreatedAt,
		Type:           MessageTheirs,
	}
	if m.SenderID == viewerID {
		v.Type = MessageMine
	}
	if m.Sender != nil {
		s := m.Sender.Summary()
		v.Sender = &s
	}
	if m.Receiver != nil {
		r := m.Receiver.Summary()
		v.Receiver = &r
	}
	return v
}
