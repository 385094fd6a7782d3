package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository handles database operations for conversations and group members
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func preloadMembers(db *gorm.DB) *gorm.DB {
	return db.Order("conversation_members.position ASC")
}

// Create inserts a conversation together with its group members.
// A second direct conversation for the same pair fails with ErrDuplicate.
func (r *ConversationRepository) Create(ctx context.Context, rec *model.ConversationRecord) (*model.Conversation, error) {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("convRepo.Create: %w", translate(err))
	}
	return rec.ToDomain(), nil
}

// FindByID finds a live (not soft-deleted) conversation with its members
func (r *ConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var rec model.ConversationRecord
	err := r.db.WithContext(ctx).
		Preload("Members", preloadMembers).
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("convRepo.FindByID: %w", translate(err))
	}
	return rec.ToDomain(), nil
}

// FindByIDWithDeleted also returns soft-deleted conversations (used by restore)
func (r *ConversationRepository) FindByIDWithDeleted(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var rec model.ConversationRecord
	err := r.db.WithContext(ctx).Unscoped().
		Preload("Members", preloadMembers).
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("convRepo.FindByIDWithDeleted: %w", translate(err))
	}
	return rec.ToDomain(), nil
}

// FindDirect finds the direct conversation between two users, in either direction
func (r *ConversationRepository) FindDirect(ctx context.Context, userA, userB uuid.UUID) (*model.Conversation, error) {
	var rec model.ConversationRecord
	err := r.db.WithContext(ctx).Unscoped().
		Where("direct_key = ?", model.DirectKey(userA, userB)).
		First(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("convRepo.FindDirect: %w", translate(err))
	}
	return rec.ToDomain(), nil
}

// ListForUser returns every live conversation where the user is creator, participant or group member
func (r *ConversationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Conversation, error) {
	var recs []model.ConversationRecord
	memberOf := r.db.Model(&model.ConversationMember{}).
		Select("conversation_id").
		Where("user_id = ?", userID)

	err := r.db.WithContext(ctx).
		Preload("Members", preloadMembers).
		Where("creator_id = ? OR participant_id = ? OR id IN (?)", userID, userID, memberOf).
		Order("last_updated DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("convRepo.ListForUser: %w", err)
	}

	out := make([]*model.Conversation, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].ToDomain())
	}
	return out, nil
}

// Rename updates the group name
func (r *ConversationRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	res := r.db.WithContext(ctx).Model(&model.ConversationRecord{}).
		Where("id = ? AND is_group = ?", id, true).
		Update("group_name", name)
	if res.Error != nil {
		return fmt.Errorf("convRepo.Rename: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("convRepo.Rename: %w", ErrNotFound)
	}
	return nil
}

// SoftDelete sets deleted_at; messages are left untouched
func (r *ConversationRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ConversationRecord{})
	if res.Error != nil {
		return fmt.Errorf("convRepo.SoftDelete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("convRepo.SoftDelete: %w", ErrNotFound)
	}
	return nil
}

// Restore clears deleted_at
func (r *ConversationRepository) Restore(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Unscoped().Model(&model.ConversationRecord{}).
		Where("id = ?", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return fmt.Errorf("convRepo.Restore: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("convRepo.Restore: %w", ErrNotFound)
	}
	return nil
}

// AddMembers appends users to the end of the member order. Ids already present are ignored.
// Returns how many members were actually added.
func (r *ConversationRepository) AddMembers(ctx context.Context, conversationID uuid.UUID, userIDs []uuid.UUID) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	var added int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next int
		if err := tx.Model(&model.ConversationMember{}).
			Select("COALESCE(MAX(position), -1) + 1").
			Where("conversation_id = ?", conversationID).
			Scan(&next).Error; err != nil {
			return err
		}

		now := time.Now()
		members := make([]model.ConversationMember, 0, len(userIDs))
		for i, id := range userIDs {
			members = append(members, model.ConversationMember{
				ConversationID: conversationID,
				UserID:         id,
				Position:       next + i,
				JoinedAt:       now,
			})
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&members)
		if res.Error != nil {
			return res.Error
		}
		added = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("convRepo.AddMembers: %w", err)
	}
	return added, nil
}

// RemoveMember deletes a member row; absent members are a no-op
func (r *ConversationRepository) RemoveMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&model.ConversationMember{})
	if res.Error != nil {
		return false, fmt.Errorf("convRepo.RemoveMember: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
