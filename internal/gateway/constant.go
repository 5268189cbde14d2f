package gateway

import "time"

// WebSocket protocol identifiers
const (
	// Request identifiers
	WSJoinConversation = 1001 // Join a conversation room
	WSTyping           = 1002 // Typing started
	WSStopTyping       = 1003 // Typing stopped
	WSMarkRead         = 1004 // Mark conversation read
	WSPresenceQuery    = 1005 // Query presence of counterparties
	WSSendMsg          = 1006 // Send a message over the socket

	// Push identifiers
	WSPushMessage     = 2001 // New message
	WSPushTyping      = 2002 // Counterparty typing
	WSPushStopTyping  = 2003 // Counterparty stopped typing
	WSPushReadReceipt = 2004 // Counterparty read messages
	WSPushPresence    = 2005 // Counterparty presence change
	WSPushDelivered   = 2006 // Sent message reached a live connection
	WSSessionKey      = 2007 // Session handshake after connect
)

// Timeout constants
const (
	// WriteWait is time allowed to write a message to the peer
	WriteWait = 10 * time.Second

	// PongWait is time allowed to read the next pong message from the peer
	PongWait = 30 * time.Second

	// PingPeriod is period between pings. Must be less than PongWait
	PingPeriod = (PongWait * 9) / 10

	// MaxMessageSize is maximum message size allowed from peer
	MaxMessageSize = 51200
)

// Query parameter keys
const (
	QueryToken       = "token"
	QuerySendId      = "send_id"
	QueryOperationId = "operation_id"
)
