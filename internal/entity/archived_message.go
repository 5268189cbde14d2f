package entity

// ArchivedMessage is a Message moved to cold storage by the archiver.
// OriginalId carries a unique index so the copy step is idempotent:
// re-running a partially archived batch is an insert-ignore, never a
// duplicate. Once written, a row is immutable.
type ArchivedMessage struct {
	Id             string           `json:"id" gorm:"column:id;primaryKey"`
	OriginalId     string           `json:"original_id" gorm:"column:original_id;uniqueIndex"`
	ConversationId string           `json:"conversation_id" gorm:"column:conversation_id;index:idx_arch_conv_created"`
	SenderId       string           `json:"sender_id" gorm:"column:sender_id"`
	ReceiverId     string           `json:"receiver_id" gorm:"column:receiver_id"`
	Content        string           `json:"content" gorm:"column:content"`
	Images         []string         `json:"images" gorm:"column:images;serializer:json"`
	ProductRef     *ProductSnapshot `json:"product_ref,omitempty" gorm:"column:product_ref;serializer:json"`
	Status         int32            `json:"status" gorm:"column:status"`
	CreatedAt      int64            `json:"created_at" gorm:"column:created_at;index:idx_arch_conv_created"`
	ArchivedAt     int64            `json:"archived_at" gorm:"column:archived_at"`
}

// TableName returns the table name for ArchivedMessage
func (ArchivedMessage) TableName() string {
	return "archived_messages"
}

// NewArchivedMessage copies a live message into its archive form,
// preserving the original id and timestamps.
func NewArchivedMessage(m *Message, archiveId string, archivedAt int64) *ArchivedMessage {
	return &ArchivedMessage{
		Id:             archiveId,
		OriginalId:     m.Id,
		ConversationId: m.ConversationId,
		SenderId:       m.SenderId,
		ReceiverId:     m.ReceiverId,
		Content:        m.Content,
		Images:         m.Images,
		ProductRef:     m.ProductRef,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
		ArchivedAt:     archivedAt,
	}
}

// ToMessageInfo converts an archived row back to the shared message DTO.
// The original id is what callers know the message by.
func (a *ArchivedMessage) ToMessageInfo() *MessageInfo {
	return &MessageInfo{
		Id:             a.OriginalId,
		ConversationId: a.ConversationId,
		SenderId:       a.SenderId,
		ReceiverId:     a.ReceiverId,
		Content:        a.Content,
		Images:         a.Images,
		ProductRef:     a.ProductRef,
		Status:         a.Status,
		CreatedAt:      a.CreatedAt,
	}
}
