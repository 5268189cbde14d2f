package entity

// ProductEntry is one product discussed in a conversation.
type ProductEntry struct {
	ProductId string `json:"product_id"`
	AddedAt   int64  `json:"added_at"`
}

// Conversation represents the persistent thread between two participants.
// UserAId/UserBId hold the pair in lexicographic order; PairKey carries the
// unique index that guarantees at most one active thread per unordered pair.
type Conversation struct {
	Id            string         `json:"id" gorm:"column:id;primaryKey"`
	PairKey       string         `json:"pair_key" gorm:"column:pair_key;uniqueIndex"`
	UserAId       string         `json:"user_a_id" gorm:"column:user_a_id;index"`
	UserBId       string         `json:"user_b_id" gorm:"column:user_b_id;index"`
	Products      []ProductEntry `json:"products" gorm:"column:products;serializer:json"`
	LastMessageId string         `json:"last_message_id" gorm:"column:last_message_id"`
	IsActive      bool           `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt     int64          `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     int64          `json:"updated_at" gorm:"column:updated_at;index"`
}

// TableName returns the table name for Conversation
func (Conversation) TableName() string {
	return "conversations"
}

// HasParticipant checks if userId is one of the two participants
func (c *Conversation) HasParticipant(userId string) bool {
	return c.UserAId == userId || c.UserBId == userId
}

// PeerOf returns the other participant for userId
func (c *Conversation) PeerOf(userId string) string {
	if c.UserAId == userId {
		return c.UserBId
	}
	return c.UserAId
}

// HasProduct checks if productId is already in the product list
func (c *Conversation) HasProduct(productId string) bool {
	for _, p := range c.Products {
		if p.ProductId == productId {
			return true
		}
	}
	return false
}

// ConversationInfo represents conversation info for API response
type ConversationInfo struct {
	Id          string         `json:"id"`
	PeerUserId  string         `json:"peer_user_id"`
	Products    []ProductEntry `json:"products,omitempty"`
	LastMessage *MessageInfo   `json:"last_message,omitempty"`
	UnreadCount int64          `json:"unread_count"`
	UpdatedAt   int64          `json:"updated_at"`
}
