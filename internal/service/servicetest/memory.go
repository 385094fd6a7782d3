// Package servicetest provides in-memory stores and recorders for exercising the
// services and handlers without a database.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/repository"
	"gorm.io/gorm"
)

type readKey struct {
	message uuid.UUID
	user    uuid.UUID
}

type messageRow struct {
	msg model.Message
	seq int
}

// Memory holds users, conversations and messages behind one lock.
// It mirrors the repository semantics: soft-deleted rows are hidden unless asked for,
// direct pairs are unique and read statuses are unique per (message, user).
type Memory struct {
	mu       sync.Mutex
	users    map[uuid.UUID]model.User
	devices  []model.UserDevice
	convs    map[uuid.UUID]*model.ConversationRecord
	messages []*messageRow
	reads    map[readKey]time.Time
	seq      int

	summaryCalls int
}

func New() *Memory {
	return &Memory{
		users: make(map[uuid.UUID]model.User),
		convs: make(map[uuid.UUID]*model.ConversationRecord),
		reads: make(map[readKey]time.Time),
	}
}

// AddUser inserts a user named name with a derived email
func (m *Memory) AddUser(name string) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := model.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     strings.ToLower(name) + "@example.com",
		CreatedAt: time.Now(),
	}
	m.users[u.ID] = u
	return u
}

func (m *Memory) Users() *UserStore                 { return &UserStore{m: m} }
func (m *Memory) Conversations() *ConversationStore { return &ConversationStore{m: m} }
func (m *Memory) Messages() *MessageStore           { return &MessageStore{m: m} }

// Devices returns the registered devices of userID
func (m *Memory) Devices(userID uuid.UUID) []model.UserDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UserDevice
	for _, d := range m.devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out
}

// ReadCount returns how many read statuses exist in total
func (m *Memory) ReadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reads)
}

// SummaryCalls counts LastMessages and UnreadCounts calls
func (m *Memory) SummaryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaryCalls
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
}

// ========== Users ==========

type UserStore struct{ m *Memory }

func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, notFound("users.FindByID")
	}
	return &u, nil
}

func (s *UserStore) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []model.User{}
	for _, id := range ids {
		if u, ok := s.m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *UserStore) ListExcluding(_ context.Context, ids []uuid.UUID) ([]model.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	skip := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}
	out := []model.User{}
	for _, u := range s.m.users {
		if _, ok := skip[u.ID]; !ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *UserStore) AddDevice(_ context.Context, userID uuid.UUID, token, deviceType string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	now := time.Now()
	for i, d := range s.m.devices {
		if d.UserID == userID && d.FCMToken == token {
			s.m.devices[i].DeviceType = deviceType
			s.m.devices[i].LastActiveAt = now
			return nil
		}
	}
	s.m.devices = append(s.m.devices, model.UserDevice{
		ID:           uuid.New(),
		UserID:       userID,
		FCMToken:     token,
		DeviceType:   deviceType,
		LastActiveAt: now,
	})
	return nil
}

// GetUserDevices satisfies the notifier's device lister
func (s *UserStore) GetUserDevices(_ context.Context, userID uuid.UUID) ([]model.UserDevice, error) {
	return s.m.Devices(userID), nil
}

// ========== Conversations ==========

type ConversationStore struct{ m *Memory }

func cloneRecord(rec *model.ConversationRecord) *model.ConversationRecord {
	c := *rec
	c.Members = append([]model.ConversationMember(nil), rec.Members...)
	return &c
}

func (s *ConversationStore) Create(_ context.Context, rec *model.ConversationRecord) (*model.Conversation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if rec.DirectKey != nil {
		for _, other := range s.m.convs {
			if other.DirectKey != nil && *other.DirectKey == *rec.DirectKey {
				return nil, fmt.Errorf("conversations.Create: %w", repository.ErrDuplicate)
			}
		}
	}
	now := time.Now()
	rec.ID = uuid.New()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	for i := range rec.Members {
		rec.Members[i].ConversationID = rec.ID
	}
	s.m.convs[rec.ID] = cloneRecord(rec)
	return rec.ToDomain(), nil
}

func (s *ConversationStore) find(id uuid.UUID, withDeleted bool) (*model.ConversationRecord, bool) {
	rec, ok := s.m.convs[id]
	if !ok || (rec.DeletedAt.Valid && !withDeleted) {
		return nil, false
	}
	return rec, true
}

func (s *ConversationStore) FindByID(_ context.Context, id uuid.UUID) (*model.Conversation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	rec, ok := s.find(id, false)
	if !ok {
		return nil, notFound("conversations.FindByID")
	}
	return rec.ToDomain(), nil
}

func (s *ConversationStore) FindByIDWithDeleted(_ context.Context, id uuid.UUID) (*model.Conversation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	rec, ok := s.find(id, true)
	if !ok {
		return nil, notFound("conversations.FindByIDWithDeleted")
	}
	return rec.ToDomain(), nil
}

func (s *ConversationStore) FindDirect(_ context.Context, userA, userB uuid.UUID) (*model.Conversation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	key := model.DirectKey(userA, userB)
	for _, rec := range s.m.convs {
		if rec.DirectKey != nil && *rec.DirectKey == key {
			return rec.ToDomain(), nil
		}
	}
	return nil, notFound("conversations.FindDirect")
}

func (s *ConversationStore) ListForUser(_ context.Context, userID uuid.UUID) ([]*model.Conversation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []*model.Conversation{}
	for _, rec := range s.m.convs {
		if rec.DeletedAt.Valid {
			continue
		}
		if conv := rec.ToDomain(); conv.Creator == userID || conv.IsMember(userID) {
			out = append(out, conv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	return out, nil
}

func (s *ConversationStore) Rename(_ context.Context, id uuid.UUID, name string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	rec, ok := s.find(id, false)
	if !ok || !rec.IsGroup {
		return notFound("conversations.Rename")
	}
	rec.GroupName = &name
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *ConversationStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	rec, ok := s.find(id, false)
	if !ok {
		return notFound("conversations.SoftDelete")
	}
	rec.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

func (s *ConversationStore) Restore(_ context.Context, id uuid.UUID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	rec, ok := s.find(id, true)
	if !ok {
		return notFound("conversations.Restore")
	}
	rec.DeletedAt = gorm.DeletedAt{}
	return nil
}

func (s *ConversationStore) AddMembers(_ context.Context, conversationID uuid.UUID, userIDs []uuid.UUID) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	rec, ok := s.m.convs[conversationID]
	if !ok {
		return 0, nil
	}
	present := make(map[uuid.UUID]struct{}, len(rec.Members))
	next := 0
	for _, mem := range rec.Members {
		present[mem.UserID] = struct{}{}
		if mem.Position >= next {
			next = mem.Position + 1
		}
	}
	var added int64
	now := time.Now()
	for _, id := range userIDs {
		if _, ok := present[id]; ok {
			continue
		}
		present[id] = struct{}{}
		rec.Members = append(rec.Members, model.ConversationMember{
			ConversationID: conversationID,
			UserID:         id,
			Position:       next,
			JoinedAt:       now,
		})
		next++
		added++
	}
	return added, nil
}

func (s *ConversationStore) RemoveMember(_ context.Context, conversationID, userID uuid.UUID) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	rec, ok := s.m.convs[conversationID]
	if !ok {
		return false, nil
	}
	for i, mem := range rec.Members {
		if mem.UserID == userID {
			rec.Members = append(rec.Members[:i], rec.Members[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ========== Messages ==========

type MessageStore struct{ m *Memory }

// withUsers returns a copy of msg with its sender and receiver attached; m.mu must be held
func (s *MessageStore) withUsers(msg model.Message) model.Message {
	if u, ok := s.m.users[msg.SenderID]; ok {
		msg.Sender = &u
	}
	if msg.ReceiverID != nil {
		if u, ok := s.m.users[*msg.ReceiverID]; ok {
			msg.Receiver = &u
		}
	}
	return msg
}

// live returns the non-deleted messages of a conversation, newest first; m.mu must be held
func (s *MessageStore) live(conversationID uuid.UUID) []*messageRow {
	var rows []*messageRow
	for _, row := range s.m.messages {
		if row.msg.ConversationID == conversationID && !row.msg.DeletedAt.Valid {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.msg.CreatedAt.Equal(b.msg.CreatedAt) {
			return a.msg.CreatedAt.After(b.msg.CreatedAt)
		}
		return a.seq > b.seq
	})
	return rows
}

func (s *MessageStore) CreateAndTouch(_ context.Context, msg *model.Message) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	rec, ok := s.m.convs[msg.ConversationID]
	if !ok {
		return notFound("messages.CreateAndTouch")
	}
	msg.ID = uuid.New()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = msg.DateTime
	}
	msg.UpdatedAt = msg.CreatedAt
	s.m.seq++
	row := &messageRow{msg: *msg, seq: s.m.seq}
	row.msg.Sender, row.msg.Receiver = nil, nil
	s.m.messages = append(s.m.messages, row)
	rec.LastUpdated = msg.DateTime
	return nil
}

func (s *MessageStore) FindByID(_ context.Context, id uuid.UUID, withDeleted bool) (*model.Message, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, row := range s.m.messages {
		if row.msg.ID == id && (withDeleted || !row.msg.DeletedAt.Valid) {
			msg := s.withUsers(row.msg)
			return &msg, nil
		}
	}
	return nil, notFound("messages.FindByID")
}

func (s *MessageStore) ListPage(_ context.Context, conversationID uuid.UUID, limit, offset int) ([]model.Message, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	rows := s.live(conversationID)
	out := []model.Message{}
	for i := offset; i < len(rows) && len(out) < limit; i++ {
		out = append(out, s.withUsers(rows[i].msg))
	}
	return out, nil
}

func (s *MessageStore) LastMessages(_ context.Context, conversationIDs []uuid.UUID) (map[uuid.UUID]model.Message, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.summaryCalls++
	out := make(map[uuid.UUID]model.Message, len(conversationIDs))
	for _, id := range conversationIDs {
		if rows := s.live(id); len(rows) > 0 {
			out[id] = rows[0].msg
		}
	}
	return out, nil
}

// unread returns the ids of live messages from others that userID has not read; m.mu must be held
func (s *MessageStore) unread(conversationID, userID uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	for _, row := range s.live(conversationID) {
		if row.msg.SenderID == userID {
			continue
		}
		if _, ok := s.m.reads[readKey{row.msg.ID, userID}]; !ok {
			ids = append(ids, row.msg.ID)
		}
	}
	return ids
}

func (s *MessageStore) CountUnread(_ context.Context, conversationID, userID uuid.UUID) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return int64(len(s.unread(conversationID, userID))), nil
}

func (s *MessageStore) UnreadCounts(_ context.Context, conversationIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.summaryCalls++
	out := make(map[uuid.UUID]int64, len(conversationIDs))
	for _, id := range conversationIDs {
		if n := len(s.unread(id, userID)); n > 0 {
			out[id] = int64(n)
		}
	}
	return out, nil
}

func (s *MessageStore) MarkRead(_ context.Context, conversationID, userID uuid.UUID, readAt time.Time) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	ids := s.unread(conversationID, userID)
	for _, id := range ids {
		s.m.reads[readKey{id, userID}] = readAt
	}
	return int64(len(ids)), nil
}

func (s *MessageStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, row := range s.m.messages {
		if row.msg.ID == id && !row.msg.DeletedAt.Valid {
			row.msg.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
			return nil
		}
	}
	return notFound("messages.SoftDelete")
}

func (s *MessageStore) Restore(_ context.Context, id uuid.UUID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, row := range s.m.messages {
		if row.msg.ID == id {
			row.msg.DeletedAt = gorm.DeletedAt{}
			return nil
		}
	}
	return notFound("messages.Restore")
}
