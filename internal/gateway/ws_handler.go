package gateway

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	hertzws "github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/kit/log"

	"marketchat/pkg/jwt"
)

// HandleHertzConnection handles a WebSocket connection from Hertz using
// hertz-contrib/websocket.
func (s *WsServer) HandleHertzConnection(ctx context.Context, c *app.RequestContext, upgrader *hertzws.HertzUpgrader) {
	if s.onlineConnNum.Load() >= s.maxConnNum {
		c.String(503, "connection limit exceeded")
		return
	}

	token := string(c.Query(QueryToken))
	sendId := string(c.Query(QuerySendId))
	if token == "" || sendId == "" {
		c.String(400, "missing required parameters")
		return
	}

	claims, err := jwt.ValidateToken(token, s.cfg.JWT.Secret, sendId)
	if err != nil {
		log.CtxDebug(ctx, "token validation failed: send_id=%s, error=%v", sendId, err)
		c.String(401, "unauthorized")
		return
	}

	err = upgrader.Upgrade(c, func(conn *hertzws.Conn) {
		wsConn := NewHertzWebSocketClientConn(conn, s.cfg.WebSocket.MaxMessageSize, PongWait, PingPeriod)
		client := NewClient(wsConn, claims.UserId, token, uuid.New().String(), uuid.New().String(), s)

		s.registerChan <- client

		// Blocking: the upgrade callback owns the read loop.
		client.readLoop()
	})
	if err != nil {
		log.CtxWarn(ctx, "websocket upgrade failed: %v", err)
		return
	}
}

// HandleConnection handles a WebSocket connection over net/http using
// gorilla/websocket. Kept for deployments that terminate the socket
// outside Hertz.
func (s *WsServer) HandleConnection(ctx context.Context, w http.ResponseWriter, r *http.Request, upgrader *websocket.Upgrader) {
	if s.onlineConnNum.Load() >= s.maxConnNum {
		http.Error(w, "connection limit exceeded", http.StatusServiceUnavailable)
		return
	}

	token := r.URL.Query().Get(QueryToken)
	sendId := r.URL.Query().Get(QuerySendId)
	if token == "" || sendId == "" {
		http.Error(w, "missing required parameters", http.StatusBadRequest)
		return
	}

	claims, err := jwt.ValidateToken(token, s.cfg.JWT.Secret, sendId)
	if err != nil {
		log.CtxDebug(ctx, "token validation failed: send_id=%s, error=%v", sendId, err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.CtxWarn(ctx, "websocket upgrade failed: %v", err)
		return
	}

	wsConn := NewWebSocketClientConn(conn, s.cfg.WebSocket.MaxMessageSize, PongWait, PingPeriod)
	client := NewClient(wsConn, claims.UserId, token, uuid.New().String(), uuid.New().String(), s)

	s.registerChan <- client
	client.Start()
}
