package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/apperror"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/repository"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"github.com/quocanhngo/chatcore/pkg/metrics"
	"go.uber.org/zap"
)

// ConversationService handles direct and group conversation business logic
type ConversationService struct {
	convs ConversationStore
	msgs  MessageStore
	users UserStore
	log   *logger.Logger
	now   func() time.Time
}

func NewConversationService(convs ConversationStore, msgs MessageStore, users UserStore, log *logger.Logger) *ConversationService {
	if log == nil {
		log = logger.Global()
	}
	return &ConversationService{
		convs: convs,
		msgs:  msgs,
		users: users,
		log:   log.Named("conversations"),
		now:   time.Now,
	}
}

// Authorize loads a live conversation and checks membership
func (s *ConversationService) Authorize(ctx context.Context, conversationID, userID uuid.UUID) (*model.Conversation, error) {
	return authorize(ctx, s.convs, conversationID, userID)
}

// StartConversation creates the direct conversation between currentUser and participantID.
// A pair that already has one (in either direction) is a Conflict.
func (s *ConversationService) StartConversation(ctx context.Context, currentUser, participantID uuid.UUID) (*model.Conversation, error) {
	if participantID == uuid.Nil {
		return nil, apperror.Validation("participant_id is required")
	}
	if participantID == currentUser {
		return nil, apperror.Validation("cannot start a conversation with yourself")
	}

	if _, err := s.users.FindByID(ctx, participantID); err != nil {
		return nil, storeError(err, "user not found")
	}

	_, err := s.convs.FindDirect(ctx, currentUser, participantID)
	if err == nil {
		return nil, apperror.Conflict("conversation already exists")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Internal(err)
	}

	conv, err := s.convs.Create(ctx, model.NewDirectRecord(currentUser, participantID, s.now()))
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("conversation already exists")
		}
		return nil, apperror.Internal(err)
	}

	metrics.RecordConversation(string(model.ConversationDirect))
	s.log.Info("direct conversation started",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("creator", currentUser.String()),
		zap.String("participant", participantID.String()),
	)
	return conv, nil
}

// CreateGroupChat creates a group whose members are the creator followed by participantIDs, de-duplicated
func (s *ConversationService) CreateGroupChat(ctx context.Context, currentUser uuid.UUID, name string, participantIDs []uuid.UUID) (*model.Conversation, error) {
	name, err := validateGroupName(name)
	if err != nil {
		return nil, err
	}

	members := dedup(append([]uuid.UUID{currentUser}, participantIDs...))
	if len(members) < 2 {
		return nil, apperror.Validation("at least one participant is required")
	}
	if err := requireUsers(ctx, s.users, members[1:]); err != nil {
		return nil, err
	}

	conv, err := s.convs.Create(ctx, model.NewGroupRecord(currentUser, name, members, s.now()))
	if err != nil {
		return nil, apperror.Internal(err)
	}

	metrics.RecordConversation(string(model.ConversationGroup))
	s.log.Info("group created",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("creator", currentUser.String()),
		zap.Int("members", len(members)),
	)
	return conv, nil
}

// authorizeGroup is authorize plus the group-only check
func (s *ConversationService) authorizeGroup(ctx context.Context, conversationID, userID uuid.UUID) (*model.Conversation, error) {
	conv, err := authorize(ctx, s.convs, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !conv.IsGroup() {
		return nil, apperror.Validation("conversation is not a group")
	}
	return conv, nil
}

func (s *ConversationService) reload(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	conv, err := s.convs.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	return conv, nil
}

// UpdateGroup renames a group
func (s *ConversationService) UpdateGroup(ctx context.Context, currentUser, conversationID uuid.UUID, newName string) (*model.Conversation, error) {
	conv, err := s.authorizeGroup(ctx, conversationID, currentUser)
	if err != nil {
		return nil, err
	}
	name, err := validateGroupName(newName)
	if err != nil {
		return nil, err
	}
	if err := s.convs.Rename(ctx, conv.ID, name); err != nil {
		return nil, storeError(err, "conversation not found")
	}
	return s.reload(ctx, conv.ID)
}

// DeleteGroup soft-deletes a group. Its messages are kept.
func (s *ConversationService) DeleteGroup(ctx context.Context, currentUser, conversationID uuid.UUID) error {
	conv, err := s.authorizeGroup(ctx, conversationID, currentUser)
	if err != nil {
		return err
	}
	if err := s.convs.SoftDelete(ctx, conv.ID); err != nil {
		return storeError(err, "conversation not found")
	}
	s.log.Info("group deleted",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("by", currentUser.String()),
	)
	return nil
}

// RestoreGroup clears the soft delete of a group. Only the creator may restore.
func (s *ConversationService) RestoreGroup(ctx context.Context, currentUser, conversationID uuid.UUID) (*model.Conversation, error) {
	if conversationID == uuid.Nil {
		return nil, apperror.Validation("conversation_id is required")
	}
	conv, err := s.convs.FindByIDWithDeleted(ctx, conversationID)
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	if conv.Creator != currentUser {
		return nil, apperror.Forbidden("only the group creator can restore it")
	}
	if !conv.IsGroup() {
		return nil, apperror.Validation("conversation is not a group")
	}
	if conv.DeletedAt == nil {
		return conv, nil
	}
	if err := s.convs.Restore(ctx, conv.ID); err != nil {
		return nil, storeError(err, "conversation not found")
	}
	return s.reload(ctx, conv.ID)
}

// AddGroupMembers appends unknown-to-the-group users; ids already present are ignored
func (s *ConversationService) AddGroupMembers(ctx context.Context, currentUser, conversationID uuid.UUID, userIDs []uuid.UUID) (*model.Conversation, error) {
	conv, err := s.authorizeGroup(ctx, conversationID, currentUser)
	if err != nil {
		return nil, err
	}

	ids := dedup(userIDs)
	if len(ids) == 0 {
		return nil, apperror.Validation("user_ids is required")
	}
	if err := requireUsers(ctx, s.users, ids); err != nil {
		return nil, err
	}

	fresh := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !conv.IsMember(id) {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return conv, nil
	}

	if _, err := s.convs.AddMembers(ctx, conv.ID, fresh); err != nil {
		return nil, apperror.Internal(err)
	}
	return s.reload(ctx, conv.ID)
}

// RemoveGroupMember removes userID from the group; absent users are a no-op. The creator cannot be removed.
func (s *ConversationService) RemoveGroupMember(ctx context.Context, currentUser, conversationID, userID uuid.UUID) (*model.Conversation, error) {
	conv, err := s.authorizeGroup(ctx, conversationID, currentUser)
	if err != nil {
		return nil, err
	}
	if userID == uuid.Nil {
		return nil, apperror.Validation("user_id is required")
	}
	if userID == conv.Creator {
		return nil, apperror.Validation("the group creator cannot be removed")
	}
	if !conv.IsMember(userID) {
		return conv, nil
	}
	if _, err := s.convs.RemoveMember(ctx, conv.ID, userID); err != nil {
		return nil, apperror.Internal(err)
	}
	return s.reload(ctx, conv.ID)
}

// GetGroupMembers returns the members' users in member order
func (s *ConversationService) GetGroupMembers(ctx context.Context, currentUser, conversationID uuid.UUID) ([]model.User, error) {
	conv, err := s.authorizeGroup(ctx, conversationID, currentUser)
	if err != nil {
		return nil, err
	}

	found, err := s.users.FindByIDs(ctx, conv.Group.Members)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	byID := make(map[uuid.UUID]model.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}

	out := make([]model.User, 0, len(conv.Group.Members))
	for _, id := range conv.Group.Members {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// GetAvailableUsers returns every user who is not a member of the group
func (s *ConversationService) GetAvailableUsers(ctx context.Context, currentUser, conversationID uuid.UUID) ([]model.User, error) {
	conv, err := s.authorizeGroup(ctx, conversationID, currentUser)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListExcluding(ctx, conv.Participants())
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return users, nil
}

// GetAllConversations lists the user's live conversations, most recently active first
func (s *ConversationService) GetAllConversations(ctx context.Context, currentUser uuid.UUID) ([]model.ConversationView, error) {
	convs, err := s.convs.ListForUser(ctx, currentUser)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	counterparts, err := s.counterparts(ctx, currentUser, convs)
	if err != nil {
		return nil, err
	}

	// Listing is by query, but never hand back a conversation the user cannot open.
	visible := make([]*model.Conversation, 0, len(convs))
	for _, conv := range convs {
		if conv.IsMember(currentUser) {
			visible = append(visible, conv)
		}
	}

	sum, err := s.summaries(ctx, currentUser, visible)
	if err != nil {
		return nil, err
	}

	views := make([]model.ConversationView, 0, len(visible))
	for _, conv := range visible {
		views = append(views, s.buildView(currentUser, conv, counterparts, sum))
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].LastUpdated.After(views[j].LastUpdated)
	})
	return views, nil
}

// GetConversation returns one conversation as the user's view
func (s *ConversationService) GetConversation(ctx context.Context, currentUser, conversationID uuid.UUID) (*model.ConversationView, error) {
	conv, err := authorize(ctx, s.convs, conversationID, currentUser)
	if err != nil {
		return nil, err
	}
	counterparts, err := s.counterparts(ctx, currentUser, []*model.Conversation{conv})
	if err != nil {
		return nil, err
	}
	sum, err := s.summaries(ctx, currentUser, []*model.Conversation{conv})
	if err != nil {
		return nil, err
	}
	view := s.buildView(currentUser, conv, counterparts, sum)
	return &view, nil
}

// counterparts loads the other party of every direct conversation in one query
func (s *ConversationService) counterparts(ctx context.Context, currentUser uuid.UUID, convs []*model.Conversation) (map[uuid.UUID]model.User, error) {
	ids := make([]uuid.UUID, 0, len(convs))
	for _, conv := range convs {
		if other := conv.Counterpart(currentUser); other != nil {
			ids = append(ids, *other)
		}
	}
	out := make(map[uuid.UUID]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := s.users.FindByIDs(ctx, dedup(ids))
	if err != nil {
		return nil, apperror.Internal(err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// messageSummary holds the latest message and the unread counts of a set of conversations
type messageSummary struct {
	last   map[uuid.UUID]model.Message
	unread map[uuid.UUID]int64
}

// summaries loads latest messages and unread counts with one query each
func (s *ConversationService) summaries(ctx context.Context, currentUser uuid.UUID, convs []*model.Conversation) (messageSummary, error) {
	ids := make([]uuid.UUID, 0, len(convs))
	for _, conv := range convs {
		ids = append(ids, conv.ID)
	}
	last, err := s.msgs.LastMessages(ctx, ids)
	if err != nil {
		return messageSummary{}, apperror.Internal(err)
	}
	unread, err := s.msgs.UnreadCounts(ctx, ids, currentUser)
	if err != nil {
		return messageSummary{}, apperror.Internal(err)
	}
	return messageSummary{last: last, unread: unread}, nil
}

// buildView derives the listing entry. It reads only; the conversation is not modified.
func (s *ConversationService) buildView(currentUser uuid.UUID, conv *model.Conversation, counterparts map[uuid.UUID]model.User, sum messageSummary) model.ConversationView {
	view := model.ConversationView{
		ID:          conv.ID,
		Creator:     conv.Creator,
		IsGroup:     conv.IsGroup(),
		LastUpdated: conv.LastUpdated,
		UpdatedAt:   conv.UpdatedAt,
	}

	switch conv.Kind {
	case model.ConversationGroup:
		name := conv.Group.Name
		view.GroupName = &name
		view.Participant = model.GroupParty{
			Name:              name,
			IsGroup:           true,
			ParticipantsCount: len(conv.Group.Members),
		}
	case model.ConversationDirect:
		if other := conv.Counterpart(currentUser); other != nil {
			if u, ok := counterparts[*other]; ok {
				summary := u.Summary()
				view.Participant = &summary
			}
		}
	}

	if last, ok := sum.last[conv.ID]; ok {
		text := last.Text
		view.LastMessage = &text
		view.LastUpdated = last.CreatedAt
	}
	view.UnreadCount = sum.unread[conv.ID]
	return view
}
