package gateway

import (
	"encoding/json"

	"marketchat/internal/entity"
)

// WSRequest represents a WebSocket request frame
type WSRequest struct {
	ReqIdentifier int32           `json:"req_identifier"` // Request type
	MsgIncr       string          `json:"msg_incr"`       // Client message counter/trace Id
	OperationId   string          `json:"operation_id"`   // Operation Id
	SendId        string          `json:"send_id"`        // Sender user Id
	Encrypted     bool            `json:"encrypted"`      // Data payload is sealed
	Data          json.RawMessage `json:"data"`           // Business data
}

// WSResponse represents a WebSocket response or push frame
type WSResponse struct {
	ReqIdentifier int32           `json:"req_identifier"` // Request type (echo back, or push type)
	MsgIncr       string          `json:"msg_incr"`       // Message counter (echo back)
	OperationId   string          `json:"operation_id"`   // Operation Id (echo back)
	ErrCode       int             `json:"err_code"`       // Error code, 0 = success
	ErrMsg        string          `json:"err_msg"`        // Error message
	Encrypted     bool            `json:"encrypted"`      // Data payload is sealed
	Data          json.RawMessage `json:"data"`           // Response data
}

// SessionKeyData is pushed right after a connection registers
type SessionKeyData struct {
	SessionId string `json:"session_id"`
	Secured   bool   `json:"secured"`
}

// JoinConversationReq asks to enter a conversation room
type JoinConversationReq struct {
	ConversationId string `json:"conversation_id"`
}

// JoinConversationResp acknowledges a room join
type JoinConversationResp struct {
	ConversationId string `json:"conversation_id"`
	LeftId         string `json:"left_id,omitempty"` // room implicitly left
}

// TypingReq reports a typing state change in a conversation
type TypingReq struct {
	ConversationId string `json:"conversation_id"`
}

// TypingData is pushed to room members on typing state changes
type TypingData struct {
	ConversationId string `json:"conversation_id"`
	UserId         string `json:"user_id"`
}

// SendMsgReq sends a message over the socket instead of HTTP
type SendMsgReq struct {
	ConversationId string   `json:"conversation_id,omitempty"`
	ReceiverId     string   `json:"receiver_id,omitempty"`
	Content        string   `json:"content,omitempty"`
	Images         []string `json:"images,omitempty"`
	ProductId      string   `json:"product_id,omitempty"`
}

// SendMsgResp echoes what the send produced
type SendMsgResp struct {
	ConversationId string                `json:"conversation_id"`
	Messages       []*entity.MessageInfo `json:"messages"`
}

// MarkReadReq marks a conversation read
type MarkReadReq struct {
	ConversationId string `json:"conversation_id"`
}

// MarkReadResp reports how many messages the mark affected
type MarkReadResp struct {
	ConversationId string `json:"conversation_id"`
	Count          int64  `json:"count"`
}

// ReadReceiptData is pushed to the counterparty after a read
type ReadReceiptData struct {
	ConversationId string `json:"conversation_id"`
	ReaderId       string `json:"reader_id"`
	Count          int64  `json:"count"`
}

// PresenceQueryReq asks for the presence of specific users
type PresenceQueryReq struct {
	UserIds []string `json:"user_ids"`
}

// PresenceQueryResp maps user id to online state
type PresenceQueryResp struct {
	Online map[string]bool `json:"online"`
}

// PresenceData is pushed to interested peers on presence changes
type PresenceData struct {
	UserId string `json:"user_id"`
	Online bool   `json:"online"`
}

// DeliveredData is pushed to the sender when a message reaches a live
// connection of the receiver.
type DeliveredData struct {
	ConversationId string `json:"conversation_id"`
	MessageId      string `json:"message_id"`
	Status         int32  `json:"status"`
}

// Encode encodes data to JSON bytes
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Decode decodes JSON bytes to struct
func Decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
