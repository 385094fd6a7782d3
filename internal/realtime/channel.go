// Package realtime delivers chat events to websocket clients over private channels.
package realtime

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ChannelKind is the prefix of a private channel name
type ChannelKind string

const (
	// ChannelChat is a user's private inbox: chat.{userID}
	ChannelChat ChannelKind = "chat"
	// ChannelConversation carries typing indicators: conversation.{conversationID}
	ChannelConversation ChannelKind = "conversation"

	privatePrefix = "private-"
)

// Channel is a parsed channel name
type Channel struct {
	Kind ChannelKind
	ID   uuid.UUID
}

func ChatChannel(userID uuid.UUID) Channel {
	return Channel{Kind: ChannelChat, ID: userID}
}

func ConversationChannel(conversationID uuid.UUID) Channel {
	return Channel{Kind: ChannelConversation, ID: conversationID}
}

func (c Channel) String() string {
	return string(c.Kind) + "." + c.ID.String()
}

// ParseChannel parses "chat.{uuid}" or "conversation.{uuid}". A leading "private-" is accepted and dropped.
func ParseChannel(name string) (Channel, error) {
	name = strings.TrimPrefix(name, privatePrefix)
	kind, id, ok := strings.Cut(name, ".")
	if !ok {
		return Channel{}, fmt.Errorf("invalid channel %q", name)
	}

	switch ChannelKind(kind) {
	case ChannelChat, ChannelConversation:
	default:
		return Channel{}, fmt.Errorf("unknown channel kind %q", kind)
	}

	parsed, err := uuid.Parse(id)
	if err != nil || parsed == uuid.Nil {
		return Channel{}, fmt.Errorf("invalid channel id %q", id)
	}
	return Channel{Kind: ChannelKind(kind), ID: parsed}, nil
}
