package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationKind tags the Conversation variant
type ConversationKind string

const (
	ConversationDirect ConversationKind = "direct"
	ConversationGroup  ConversationKind = "group"
)

// DirectPeers is the payload of a 1:1 conversation
type DirectPeers struct {
	Participant uuid.UUID
}

// GroupInfo is the payload of a group conversation. Members is an ordered set that always contains the creator.
type GroupInfo struct {
	Name    string
	Members []uuid.UUID
}

// Conversation is the domain view of a conversation row: exactly one of Direct/Group is set, matching Kind
type Conversation struct {
	ID          uuid.UUID
	Kind        ConversationKind
	Creator     uuid.UUID
	Direct      *DirectPeers
	Group       *GroupInfo
	LastUpdated time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// IsGroup reports whether the conversation is the group variant
func (c *Conversation) IsGroup() bool {
	return c.Kind == ConversationGroup
}

// IsMember decides whether userID may read and write the conversation
func (c *Conversation) IsMember(userID uuid.UUID) bool {
	switch c.Kind {
	case ConversationDirect:
		return c.Direct != nil && (userID == c.Creator || userID == c.Direct.Participant)
	case ConversationGroup:
		if c.Group == nil {
			return false
		}
		for _, id := range c.Group.Members {
			if id == userID {
				return true
			}
		}
	}
	return false
}

// Participants returns every member id
func (c *Conversation) Participants() []uuid.UUID {
	switch c.Kind {
	case ConversationDirect:
		if c.Direct == nil {
			return []uuid.UUID{c.Creator}
		}
		return []uuid.UUID{c.Creator, c.Direct.Participant}
	case ConversationGroup:
		if c.Group == nil {
			return nil
		}
		out := make([]uuid.UUID, len(c.Group.Members))
		copy(out, c.Group.Members)
		return out
	}
	return nil
}

// Counterpart returns the other party of a direct conversation, or nil for groups
func (c *Conversation) Counterpart(userID uuid.UUID) *uuid.UUID {
	if c.Kind != ConversationDirect || c.Direct == nil {
		return nil
	}
	other := c.Direct.Participant
	if userID == c.Direct.Participant {
		other = c.Creator
	}
	return &other
}

// conversationJSON is the flat wire shape of a Conversation
type conversationJSON struct {
	ID                uuid.UUID   `json:"id"`
	IsGroup           bool        `json:"is_group"`
	Creator           uuid.UUID   `json:"creator"`
	Participant       *uuid.UUID  `json:"participant"`
	GroupName         *string     `json:"group_name"`
	GroupParticipants []uuid.UUID `json:"group_participants"`
	LastUpdated       time.Time   `json:"last_updated"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

func (c Conversation) MarshalJSON() ([]byte, error) {
	out := conversationJSON{
		ID:          c.ID,
		IsGroup:     c.IsGroup(),
		Creator:     c.Creator,
		LastUpdated: c.LastUpdated,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	switch {
	case c.Direct != nil:
		p := c.Direct.Participant
		out.Participant = &p
	case c.Group != nil:
		name := c.Group.Name
		out.GroupName = &name
		out.GroupParticipants = c.Group.Members
	}
	return json.Marshal(out)
}

// DirectKey is the order-independent identity of a user pair, backing the unique index on direct conversations
func DirectKey(a, b uuid.UUID) string {
	as, bs := a.String(), b.String()
	if as > bs {
		as, bs = bs, as
	}
	return as + ":" + bs
}

// ========== Persistence ==========

// ConversationRecord is the conversations table row
type ConversationRecord struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	IsGroup       bool           `gorm:"not null;default:false"`
	CreatorID     uuid.UUID      `gorm:"type:uuid;not null;index"`
	ParticipantID *uuid.UUID     `gorm:"type:uuid;index"`
	GroupName     *string        `gorm:"size:255"`
	DirectKey     *string        `gorm:"size:80;uniqueIndex"` // NULL for groups
	LastUpdated   time.Time      `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`

	// Relations
	Members []ConversationMember `gorm:"foreignKey:ConversationID"`
}

func (ConversationRecord) TableName() string {
	return "conversations"
}

// ConversationMember is one entry of a group's ordered member set
type ConversationMember struct {
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	Position       int       `gorm:"not null"`
	JoinedAt       time.Time `gorm:"not null"`
}

// ToDomain converts the row (with Members preloaded, ordered by position) into the tagged variant
func (r *ConversationRecord) ToDomain() *Conversation {
	conv := &Conversation{
		ID:          r.ID,
		Creator:     r.CreatorID,
		LastUpdated: r.LastUpdated,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.DeletedAt.Valid {
		t := r.DeletedAt.Time
		conv.DeletedAt = &t
	}

	if !r.IsGroup {
		conv.Kind = ConversationDirect
		peers := &DirectPeers{}
		if r.ParticipantID != nil {
			peers.Participant = *r.ParticipantID
		}
		conv.Direct = peers
		return conv
	}

	conv.Kind = ConversationGroup
	info := &GroupInfo{Members: make([]uuid.UUID, 0, len(r.Members))}
	if r.GroupName != nil {
		info.Name = *r.GroupName
	}
	for _, m := range r.Members {
		info.Members = append(info.Members, m.UserID)
	}
	conv.Group = info
	return conv
}

// NewDirectRecord builds the row for a new 1:1 conversation
func NewDirectRecord(creator, participant uuid.UUID, now time.Time) *ConversationRecord {
	key := DirectKey(creator, participant)
	return &ConversationRecord{
		IsGroup:       false,
		CreatorID:     creator,
		ParticipantID: &participant,
		DirectKey:     &key,
		LastUpdated:   now,
	}
}

// NewGroupRecord builds the row for a new group; members must already be de-duplicated with the creator first
func NewGroupRecord(creator uuid.UUID, name string, members []uuid.UUID, now time.Time) *ConversationRecord {
	rec := &ConversationRecord{
		IsGroup:     true,
		CreatorID:   creator,
		GroupName:   &name,
		LastUpdated: now,
		Members:     make([]ConversationMember, 0, len(members)),
	}
	for i, id := range members {
		rec.Members = append(rec.Members, ConversationMember{
			UserID:   id,
			Position: i,
			JoinedAt: now,
		})
	}
	return rec
}
