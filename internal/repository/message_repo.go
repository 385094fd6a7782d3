package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"gorm.io/gorm"
)

// MessageRepository handles database operations for Message and ReadStatus
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateAndTouch inserts a message and bumps the conversation's last_updated in one transaction
func (r *MessageRepository) CreateAndTouch(ctx context.Context, msg *model.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.ConversationRecord{}).
			Where("id = ?", msg.ConversationID).
			Update("last_updated", msg.DateTime).Error
	})
	if err != nil {
		return fmt.Errorf("msgRepo.CreateAndTouch: %w", err)
	}
	return nil
}

// FindByID finds a message by ID with sender and receiver; withDeleted includes soft-deleted rows
func (r *MessageRepository) FindByID(ctx context.Context, id uuid.UUID, withDeleted bool) (*model.Message, error) {
	var msg model.Message
	query := r.db.WithContext(ctx)
	if withDeleted {
		query = query.Unscoped()
	}
	err := query.
		Preload("Sender").
		Preload("Receiver").
		Where("id = ?", id).
		First(&msg).Error
	if err != nil {
		return nil, fmt.Errorf("msgRepo.FindByID: %w", translate(err))
	}
	return &msg, nil
}

// ListPage returns one page of a conversation's messages, newest first
func (r *MessageRepository) ListPage(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]model.Message, error) {
	messages := []model.Message{}
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListPage: %w", err)
	}
	return messages, nil
}

// LastMessages returns the latest live message of each conversation, keyed by conversation id
func (r *MessageRepository) LastMessages(ctx context.Context, conversationIDs []uuid.UUID) (map[uuid.UUID]model.Message, error) {
	out := make(map[uuid.UUID]model.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Select("DISTINCT ON (conversation_id) *").
		Where("conversation_id IN ?", conversationIDs).
		Order("conversation_id").
		Order("created_at DESC").
		Order("id DESC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("msgRepo.LastMessages: %w", err)
	}
	for _, m := range messages {
		out[m.ConversationID] = m
	}
	return out, nil
}

// unreadQuery selects live messages from others that userID has no read status for
func (r *MessageRepository) unreadQuery(ctx context.Context, userID uuid.UUID) *gorm.DB {
	read := r.db.Model(&model.ReadStatus{}).
		Select("1").
		Where("message_read_status.message_id = messages.id AND message_read_status.user_id = ?", userID)

	return r.db.WithContext(ctx).Model(&model.Message{}).
		Where("sender_id <> ?", userID).
		Where("NOT EXISTS (?)", read)
}

// CountUnread counts messages from others that userID has no read status for
func (r *MessageRepository) CountUnread(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.unreadQuery(ctx, userID).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("msgRepo.CountUnread: %w", err)
	}
	return count, nil
}

// UnreadCounts is CountUnread for many conversations in one query. Conversations with nothing unread are absent.
func (r *MessageRepository) UnreadCounts(ctx context.Context, conversationIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ConversationID uuid.UUID
		Unread         int64
	}
	err := r.unreadQuery(ctx, userID).
		Select("conversation_id, COUNT(*) AS unread").
		Where("conversation_id IN ?", conversationIDs).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("msgRepo.UnreadCounts: %w", err)
	}
	for _, row := range rows {
		out[row.ConversationID] = row.Unread
	}
	return out, nil
}

// markReadSQL inserts every missing read status in a single set-based statement
const markReadSQL = `
INSERT INTO message_read_status (message_id, user_id, read_at)
SELECT m.id, ?, ?
FROM messages m
WHERE m.conversation_id = ?
  AND m.sender_id <> ?
  AND m.deleted_at IS NULL
ON CONFLICT (message_id, user_id) DO NOTHING`

// MarkRead inserts a read status for every unread message from others.
// Concurrent callers are safe: conflicting rows are skipped. Returns how many rows were inserted.
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, readAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(markReadSQL, userID, readAt, conversationID, userID)
	if res.Error != nil {
		return 0, fmt.Errorf("msgRepo.MarkRead: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ReadStatuses returns the read statuses recorded for a message
func (r *MessageRepository) ReadStatuses(ctx context.Context, messageID uuid.UUID) ([]model.ReadStatus, error) {
	statuses := []model.ReadStatus{}
	if err := r.db.WithContext(ctx).Where("message_id = ?", messageID).Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("msgRepo.ReadStatuses: %w", err)
	}
	return statuses, nil
}

// SoftDelete sets deleted_at on a message
func (r *MessageRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Message{})
	if res.Error != nil {
		return fmt.Errorf("msgRepo.SoftDelete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("msgRepo.SoftDelete: %w", ErrNotFound)
	}
	return nil
}

// Restore clears deleted_at on a message
func (r *MessageRepository) Restore(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Unscoped().Model(&model.Message{}).
		Where("id = ?", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return fmt.Errorf("msgRepo.Restore: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("msgRepo.Restore: %w", ErrNotFound)
	}
	return nil
}
