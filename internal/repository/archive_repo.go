package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketchat/internal/entity"
)

// ArchiveRepo handles archived message data access
type ArchiveRepo struct {
	db *gorm.DB
}

// NewArchiveRepo creates a new ArchiveRepo
func NewArchiveRepo(db *gorm.DB) *ArchiveRepo {
	return &ArchiveRepo{db: db}
}

// BulkInsert copies rows into cold storage inside the caller's transaction.
// Conflicts on original_id are skipped, which makes re-running a partially
// archived batch safe. If the bulk statement fails for another reason it
// falls back to per-row inserts so one bad row cannot poison the batch.
func (r *ArchiveRepo) BulkInsert(tx *gorm.DB, rows []*entity.ArchivedMessage) error {
	if len(rows) == 0 {
		return nil
	}

	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "original_id"}},
		DoNothing: true,
	}

	err := tx.Clauses(onConflict).Create(rows).Error
	if err == nil {
		return nil
	}

	for _, row := range rows {
		if rowErr := tx.Clauses(onConflict).Create(row).Error; rowErr != nil {
			return rowErr
		}
	}
	return nil
}

// CountByConversation returns the number of archived messages in a conversation
func (r *ArchiveRepo) CountByConversation(ctx context.Context, convId string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ArchivedMessage{}).
		Where("conversation_id = ?", convId).
		Count(&count).Error
	return count, err
}

// PageAsc returns archived messages in chronological order
func (r *ArchiveRepo) PageAsc(ctx context.Context, convId string, offset, limit int) ([]*entity.ArchivedMessage, error) {
	var rows []*entity.ArchivedMessage
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convId).
		Order("created_at ASC, id ASC").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, err
}
