package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/mbeoliero/kit/log"
)

// Client represents one connected WebSocket session of a user
type Client struct {
	mu        sync.Mutex
	conn      ClientConn
	UserId    string
	Token     string
	ConnId    string
	SessionId string
	server    *WsServer
	room      atomic.Value // current conversation room, "" when none
	closed    atomic.Bool
	closedErr error
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new client
func NewClient(conn ClientConn, userId, token, connId, sessionId string, server *WsServer) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:      conn,
		UserId:    userId,
		Token:     token,
		ConnId:    connId,
		SessionId: sessionId,
		server:    server,
		ctx:       ctx,
		cancel:    cancel,
	}
	c.room.Store("")
	return c
}

// Room returns the conversation room this connection has joined
func (c *Client) Room() string {
	return c.room.Load().(string)
}

func (c *Client) setRoom(convId string) {
	c.room.Store(convId)
}

// Start starts the client message handling
func (c *Client) Start() {
	go c.readLoop()
}

// readLoop continuously reads frames from the connection
func (c *Client) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			c.closedErr = ErrPanic
			log.CtxError(c.ctx, "client read loop panic: user_id=%s, error=%v", c.UserId, r)
		}
		c.close()
	}()

	for {
		message, err := c.conn.ReadMessage()
		if err != nil {
			log.CtxDebug(c.ctx, "read message error: user_id=%s, error=%v", c.UserId, err)
			c.closedErr = err
			return
		}

		if c.closed.Load() {
			c.closedErr = ErrConnClosed
			return
		}

		if err := c.handleMessage(message); err != nil {
			log.CtxWarn(c.ctx, "handle message error: user_id=%s, error=%v", c.UserId, err)
			c.closedErr = err
			return
		}
	}
}

// handleMessage handles a single incoming frame
func (c *Client) handleMessage(message []byte) error {
	var req WSRequest
	if err := json.Unmarshal(message, &req); err != nil {
		return c.replyError(&req, ErrInvalidProtocol)
	}

	// Frames must speak for the authenticated user
	if req.SendId != "" && req.SendId != c.UserId {
		return c.replyError(&req, ErrUserIdMismatch)
	}

	payload, err := c.openPayload(&req)
	if err != nil {
		return c.replyError(&req, ErrInvalidProtocol)
	}

	log.CtxDebug(c.ctx, "received frame: req_identifier=%d, user_id=%s", req.ReqIdentifier, c.UserId)

	var resp []byte
	switch req.ReqIdentifier {
	case WSJoinConversation:
		resp, err = c.server.HandleJoinConversation(c.ctx, c, payload)
	case WSTyping:
		resp, err = c.server.HandleTyping(c.ctx, c, payload, true)
	case WSStopTyping:
		resp, err = c.server.HandleTyping(c.ctx, c, payload, false)
	case WSMarkRead:
		resp, err = c.server.HandleMarkRead(c.ctx, c, payload)
	case WSPresenceQuery:
		resp, err = c.server.HandlePresenceQuery(c.ctx, c, payload)
	case WSSendMsg:
		resp, err = c.server.HandleSendMsg(c.ctx, c, payload)
	default:
		return c.replyError(&req, ErrInvalidProtocol)
	}

	return c.reply(&req, err, resp)
}

// openPayload returns the frame's business data, unsealing it when the
// connection negotiated a secured session.
func (c *Client) openPayload(req *WSRequest) ([]byte, error) {
	if !req.Encrypted {
		return req.Data, nil
	}
	if c.server.secure == nil {
		return nil, ErrInvalidProtocol
	}

	var sealed string
	if err := json.Unmarshal(req.Data, &sealed); err != nil {
		return nil, err
	}
	return c.server.secure.Open(sealed)
}

// sealPayload prepares outgoing business data for the wire
func (c *Client) sealPayload(data []byte) (json.RawMessage, bool, error) {
	if c.server.secure == nil || len(data) == 0 {
		return data, false, nil
	}

	sealed, err := c.server.secure.Seal(data)
	if err != nil {
		return nil, false, err
	}
	raw, err := json.Marshal(sealed)
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// reply sends a response to the client
func (c *Client) reply(req *WSRequest, err error, data []byte) error {
	resp := WSResponse{
		ReqIdentifier: req.ReqIdentifier,
		MsgIncr:       req.MsgIncr,
		OperationId:   req.OperationId,
	}

	if err != nil {
		resp.ErrCode = 1
		resp.ErrMsg = err.Error()
	} else if len(data) > 0 {
		sealed, encrypted, sealErr := c.sealPayload(data)
		if sealErr != nil {
			return sealErr
		}
		resp.Data = sealed
		resp.Encrypted = encrypted
	}

	return c.writeResponse(resp)
}

// replyError sends an error response
func (c *Client) replyError(req *WSRequest, err error) error {
	resp := WSResponse{
		ReqIdentifier: req.ReqIdentifier,
		MsgIncr:       req.MsgIncr,
		OperationId:   req.OperationId,
		ErrCode:       1,
		ErrMsg:        err.Error(),
	}
	return c.writeResponse(resp)
}

// Push sends a server-initiated frame to this connection
func (c *Client) Push(identifier int32, v interface{}) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sealed, encrypted, err := c.sealPayload(data)
	if err != nil {
		return err
	}

	return c.writeResponse(WSResponse{
		ReqIdentifier: identifier,
		Encrypted:     encrypted,
		Data:          sealed,
	})
}

// writeResponse writes a frame to the connection
func (c *Client) writeResponse(resp WSResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	return c.conn.WriteMessage(data)
}

// Close closes the client connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil
	}

	c.closed.Store(true)
	c.cancel()
	return c.conn.Close()
}

// close handles cleanup when connection is closed
func (c *Client) close() {
	c.Close()
	c.server.UnregisterClient(c)
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
