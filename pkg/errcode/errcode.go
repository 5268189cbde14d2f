package errcode

import "fmt"

// Error represents a business error. Business errors are always terminal:
// the retry executor never retries an *Error.
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("errcode: %d, msg: %s", e.Code, e.Msg)
}

// New creates a new error with code and message
func New(code int, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap wraps an error with additional context
func (e *Error) Wrap(err error) *Error {
	if err == nil {
		return e
	}
	return &Error{
		Code: e.Code,
		Msg:  fmt.Sprintf("%s: %v", e.Msg, err),
	}
}

// Common error codes
var (
	// Success
	ErrSuccess = New(0, "success")

	// Validation errors (1xxx)
	ErrInvalidParam           = New(1001, "invalid parameter")
	ErrInternalServer         = New(1002, "internal server error")
	ErrEmptyMessage           = New(1003, "message needs text or images")
	ErrSelfConversation       = New(1004, "cannot start a conversation with yourself")
	ErrSameRole               = New(1005, "conversation requires a buyer and a seller")
	ErrTooManyRequests        = New(1006, "too many requests")
	ErrTemporarilyUnavailable = New(1007, "temporarily unavailable, please retry")

	// Auth errors (2xxx)
	ErrTokenInvalid   = New(2001, "token invalid")
	ErrTokenExpired   = New(2002, "token expired")
	ErrTokenMissing   = New(2003, "token missing")
	ErrTokenMismatch  = New(2004, "token user mismatch")
	ErrUnauthorized   = New(2005, "unauthorized")
	ErrNotParticipant = New(2006, "not a participant of this conversation")

	// Catalog errors (3xxx)
	ErrProductNotFound    = New(3001, "product not found")
	ErrCatalogUnavailable = New(3002, "catalog service unavailable")

	// Conversation/message errors (4xxx)
	ErrConvNotFound    = New(4001, "conversation not found")
	ErrConvInactive    = New(4002, "conversation is not active")
	ErrMessageNotFound = New(4003, "message not found")
	ErrSendFailed      = New(4004, "message send failed")
	ErrHistoryFailed   = New(4005, "history fetch failed")
	ErrArchiveFailed   = New(4006, "archive run failed")

	// WebSocket errors (5xxx)
	ErrConnOverLimit   = New(5001, "connection over max limit")
	ErrConnClosed      = New(5002, "connection closed")
	ErrInvalidProtocol = New(5003, "invalid protocol")
	ErrPushFailed      = New(5004, "push message failed")
	ErrNotInRoom       = New(5005, "not joined to this conversation room")
)
