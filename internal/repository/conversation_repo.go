package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketchat/internal/entity"
)

// ConversationRepo handles conversation data access
type ConversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo creates a new ConversationRepo
func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// GetOrCreate inserts conv unless a conversation with the same pair key
// already exists, in which case the existing row is returned. The unique
// index on pair_key resolves concurrent creates: the loser's insert is a
// no-op and it reads back the winner's row.
func (r *ConversationRepo) GetOrCreate(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}},
			DoNothing: true,
		}).
		Create(conv)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return conv, true, nil
	}

	existing, err := r.GetByPairKey(ctx, conv.PairKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetById retrieves a conversation by id
func (r *ConversationRepo) GetById(ctx context.Context, id string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetByPairKey retrieves a conversation by its participant pair key
func (r *ConversationRepo) GetByPairKey(ctx context.Context, pairKey string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.WithContext(ctx).Where("pair_key = ?", pairKey).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListForUser returns the user's conversations ordered by most recent
// activity, with the total count for pagination.
func (r *ConversationRepo) ListForUser(ctx context.Context, userId string, offset, limit int) ([]*entity.Conversation, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.Conversation{}).
		Where("user_a_id = ? OR user_b_id = ?", userId, userId).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var convs []*entity.Conversation
	err = r.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userId, userId).
		Order("updated_at DESC").Offset(offset).Limit(limit).
		Find(&convs).Error
	if err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

// ListPeerIds returns the distinct counterparties the user has
// conversations with.
func (r *ConversationRepo) ListPeerIds(ctx context.Context, userId string) ([]string, error) {
	var convs []*entity.Conversation
	err := r.db.WithContext(ctx).
		Select("user_a_id", "user_b_id").
		Where("user_a_id = ? OR user_b_id = ?", userId, userId).
		Find(&convs).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(convs))
	peers := make([]string, 0, len(convs))
	for _, c := range convs {
		peer := c.PeerOf(userId)
		if peer == "" || seen[peer] {
			continue
		}
		seen[peer] = true
		peers = append(peers, peer)
	}
	return peers, nil
}

// UpdateLastMessage moves the conversation's activity pointer. Runs inside
// the caller's transaction alongside the message insert.
func (r *ConversationRepo) UpdateLastMessage(tx *gorm.DB, convId, messageId string, updatedAt int64) error {
	return tx.Model(&entity.Conversation{}).
		Where("id = ?", convId).
		Updates(map[string]interface{}{
			"last_message_id": messageId,
			"updated_at":      updatedAt,
		}).Error
}

// UpdateProducts replaces the conversation's product list
func (r *ConversationRepo) UpdateProducts(tx *gorm.DB, convId string, products []entity.ProductEntry, updatedAt int64) error {
	return tx.Model(&entity.Conversation{}).
		Where("id = ?", convId).
		Updates(map[string]interface{}{
			"products":   products,
			"updated_at": updatedAt,
		}).Error
}

// SetActive toggles whether the conversation accepts new messages
func (r *ConversationRepo) SetActive(ctx context.Context, id string, active bool) error {
	res := r.db.WithContext(ctx).Model(&entity.Conversation{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsNotFound reports whether err means the row does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
