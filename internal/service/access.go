package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/apperror"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/repository"
)

const (
	groupNameMin = 2
	groupNameMax = 255
)

// authorize loads a live conversation and checks that userID is a member of it.
// A missing or soft-deleted conversation is NotFound, never a silent "not a member".
func authorize(ctx context.Context, convs ConversationStore, conversationID, userID uuid.UUID) (*model.Conversation, error) {
	if conversationID == uuid.Nil {
		return nil, apperror.Validation("conversation_id is required")
	}
	conv, err := convs.FindByID(ctx, conversationID)
	if err != nil {
		return nil, storeError(err, "conversation not found")
	}
	if !conv.IsMember(userID) {
		return nil, apperror.Forbidden("you are not a member of this conversation")
	}
	return conv, nil
}

// storeError maps a repository error onto the taxonomy
func storeError(err error, notFoundMsg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("%s", notFoundMsg)
	}
	return apperror.Internal(err)
}

func validateGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		return "", apperror.Validation("group name is required")
	case n < groupNameMin:
		return "", apperror.Validation("group name must be at least %d characters", groupNameMin)
	case n > groupNameMax:
		return "", apperror.Validation("group name must be at most %d characters", groupNameMax)
	}
	return name, nil
}

// dedup removes duplicates and uuid.Nil, keeping first occurrences in order
func dedup(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// requireUsers fails with Validation when any id has no user
func requireUsers(ctx context.Context, users UserStore, ids []uuid.UUID) error {
	found, err := users.FindByIDs(ctx, ids)
	if err != nil {
		return apperror.Internal(err)
	}
	known := make(map[uuid.UUID]struct{}, len(found))
	for _, u := range found {
		known[u.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return apperror.Validation("user %s does not exist", id)
		}
	}
	return nil
}
