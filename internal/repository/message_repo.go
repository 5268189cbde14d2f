package repository

import (
	"context"

	"gorm.io/gorm"

	"marketchat/internal/entity"
)

// MessageRepo handles live message data access
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo creates a new MessageRepo
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create inserts messages inside the caller's transaction. A text+image
// send produces two rows, committed together or not at all.
func (r *MessageRepo) Create(tx *gorm.DB, msgs ...*entity.Message) error {
	return tx.Create(msgs).Error
}

// GetById retrieves a message by id
func (r *MessageRepo) GetById(ctx context.Context, id string) (*entity.Message, error) {
	var msg entity.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// CountByConversation returns the number of live messages in a conversation
func (r *MessageRepo) CountByConversation(ctx context.Context, convId string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Message{}).
		Where("conversation_id = ?", convId).
		Count(&count).Error
	return count, err
}

// PageAsc returns live messages in chronological order. Id breaks ties so
// sibling rows created in the same millisecond keep a stable order.
func (r *MessageRepo) PageAsc(ctx context.Context, convId string, offset, limit int) ([]*entity.Message, error) {
	var msgs []*entity.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convId).
		Order("created_at ASC, id ASC").
		Offset(offset).Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// MarkConversationRead marks every message addressed to readerId as read.
// The status guard keeps the transition monotonic: rows already read are
// untouched, so re-marking is idempotent. Returns affected row count.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, convId, readerId string, now int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND status < ?", convId, readerId, entity.MessageStatusRead).
		Updates(map[string]interface{}{
			"status":     entity.MessageStatusRead,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

// MarkDelivered advances a message from sent to delivered. A message
// already delivered or read is left alone.
func (r *MessageRepo) MarkDelivered(ctx context.Context, messageId string, now int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.Message{}).
		Where("id = ? AND status < ?", messageId, entity.MessageStatusDelivered).
		Updates(map[string]interface{}{
			"status":     entity.MessageStatusDelivered,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

// CountUnread counts live messages addressed to userId not yet read
func (r *MessageRepo) CountUnread(ctx context.Context, convId, userId string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND status < ?", convId, userId, entity.MessageStatusRead).
		Count(&count).Error
	return count, err
}

// FindOlderThan returns up to limit messages in a conversation created
// before cutoff, oldest first. The archiver consumes these in batches.
func (r *MessageRepo) FindOlderThan(ctx context.Context, convId string, cutoff int64, limit int) ([]*entity.Message, error) {
	var msgs []*entity.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND created_at < ?", convId, cutoff).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// DeleteByIds removes live rows inside the caller's transaction
func (r *MessageRepo) DeleteByIds(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Where("id IN ?", ids).Delete(&entity.Message{}).Error
}

// DistinctConversationsOlderThan lists conversation ids that still have
// live messages older than cutoff.
func (r *MessageRepo) DistinctConversationsOlderThan(ctx context.Context, cutoff int64) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.Message{}).
		Distinct("conversation_id").
		Where("created_at < ?", cutoff).
		Pluck("conversation_id", &ids).Error
	return ids, err
}
