package entity

// Message status values. Status is monotonically non-decreasing:
// every status update is guarded with "status < ?".
const (
	MessageStatusSent      int32 = 1
	MessageStatusDelivered int32 = 2
	MessageStatusRead      int32 = 3
)

// ProductSnapshot is a denormalized copy of catalog fields captured at
// send time, immune to later catalog changes.
type ProductSnapshot struct {
	ProductId string `json:"product_id"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	ImageUrl  string `json:"image_url,omitempty"`
}

// Message represents one atomic unit of communication. A message carries
// either text content or image references: a send call that includes both
// creates two sibling rows sharing the same product snapshot.
type Message struct {
	Id             string           `json:"id" gorm:"column:id;primaryKey"`
	ConversationId string           `json:"conversation_id" gorm:"column:conversation_id;index:idx_conv_created"`
	SenderId       string           `json:"sender_id" gorm:"column:sender_id"`
	ReceiverId     string           `json:"receiver_id" gorm:"column:receiver_id;index"`
	Content        string           `json:"content" gorm:"column:content"`
	Images         []string         `json:"images" gorm:"column:images;serializer:json"`
	ProductRef     *ProductSnapshot `json:"product_ref,omitempty" gorm:"column:product_ref;serializer:json"`
	Status         int32            `json:"status" gorm:"column:status;default:1"`
	CreatedAt      int64            `json:"created_at" gorm:"column:created_at;index:idx_conv_created"`
	UpdatedAt      int64            `json:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// MessageInfo represents message info for API response
type MessageInfo struct {
	Id             string           `json:"id"`
	ConversationId string           `json:"conversation_id"`
	SenderId       string           `json:"sender_id"`
	ReceiverId     string           `json:"receiver_id"`
	Content        string           `json:"content,omitempty"`
	Images         []string         `json:"images,omitempty"`
	ProductRef     *ProductSnapshot `json:"product_ref,omitempty"`
	Status         int32            `json:"status"`
	CreatedAt      int64            `json:"created_at"`
}

// ToMessageInfo converts Message to MessageInfo
func (m *Message) ToMessageInfo() *MessageInfo {
	return &MessageInfo{
		Id:             m.Id,
		ConversationId: m.ConversationId,
		SenderId:       m.SenderId,
		ReceiverId:     m.ReceiverId,
		Content:        m.Content,
		Images:         m.Images,
		ProductRef:     m.ProductRef,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
	}
}
