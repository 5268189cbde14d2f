package gateway

import "errors"

// Gateway errors
var (
	ErrConnClosed       = errors.New("connection closed")
	ErrWriteChannelFull = errors.New("write channel full")
	ErrInvalidProtocol  = errors.New("invalid protocol")
	ErrUserIdMismatch   = errors.New("user Id mismatch")
	ErrNotInRoom        = errors.New("join the conversation first")
	ErrPanic            = errors.New("panic error")
)
