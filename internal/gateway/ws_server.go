package gateway

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/mbeoliero/kit/log"

	"marketchat/internal/config"
	"marketchat/internal/entity"
	"marketchat/internal/service"
	"marketchat/pkg/errcode"
)

// WsServer is the WebSocket gateway. It owns the connection registry,
// the conversation rooms and the push pipeline, and implements
// service.Pusher for the HTTP write path.
type WsServer struct {
	cfg            *config.Config
	secure         *SecureBox
	userMap        *UserMap
	roomMap        *RoomMap
	registerChan   chan *Client
	unregisterChan chan *Client
	pushChan       chan *PushTask
	msgService     *service.MessageService
	convService    *service.ConversationService
	onlineUserNum  atomic.Int64
	onlineConnNum  atomic.Int64
	maxConnNum     int64
}

// PushTask is one queued delivery to a user. Msg is set for new-message
// pushes so the worker can record the delivered transition.
type PushTask struct {
	TargetId   string
	Identifier int32
	Payload    interface{}
	Msg        *entity.MessageInfo
}

// NewWsServer creates a new WebSocket gateway
func NewWsServer(cfg *config.Config, msgService *service.MessageService, convService *service.ConversationService) (*WsServer, error) {
	var secure *SecureBox
	if cfg.Secure.Enabled {
		box, err := NewSecureBox(cfg.Secure.SharedSecret)
		if err != nil {
			return nil, err
		}
		secure = box
	}

	server := &WsServer{
		cfg:            cfg,
		secure:         secure,
		userMap:        NewUserMap(),
		roomMap:        NewRoomMap(),
		registerChan:   make(chan *Client, 1000),
		unregisterChan: make(chan *Client, 1000),
		pushChan:       make(chan *PushTask, cfg.WebSocket.PushChannelSize),
		msgService:     msgService,
		convService:    convService,
		maxConnNum:     cfg.WebSocket.MaxConnNum,
	}

	return server, nil
}

// Run starts the gateway loops
func (s *WsServer) Run(ctx context.Context) {
	go s.eventLoop(ctx)

	workerNum := s.cfg.WebSocket.PushWorkerNum
	if workerNum <= 0 {
		workerNum = 10
	}
	for i := 0; i < workerNum; i++ {
		go s.pushLoop(ctx)
	}
	log.Info("started %d push workers", workerNum)
}

// eventLoop handles client registration and unregistration
func (s *WsServer) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-s.registerChan:
			s.registerClient(ctx, client)
		case client := <-s.unregisterChan:
			s.unregisterClient(ctx, client)
		}
	}
}

// pushLoop handles queued deliveries
func (s *WsServer) pushLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-s.pushChan:
			s.processPushTask(ctx, task)
		}
	}
}

// processPushTask fans one payload out to every connection of the target
// user. A new-message push that reaches at least one connection advances
// the message to delivered and tells the sender.
func (s *WsServer) processPushTask(ctx context.Context, task *PushTask) {
	clients, ok := s.userMap.GetAll(task.TargetId)
	if !ok {
		return
	}

	delivered := false
	for _, client := range clients {
		if err := client.Push(task.Identifier, task.Payload); err != nil {
			log.CtxDebug(ctx, "push to client failed: user_id=%s, conn_id=%s, error=%v", task.TargetId, client.ConnId, err)
			continue
		}
		delivered = true
	}

	if delivered && task.Msg != nil {
		s.recordDelivered(ctx, task.Msg)
	}
}

// recordDelivered advances the message status and notifies the sender
func (s *WsServer) recordDelivered(ctx context.Context, info *entity.MessageInfo) {
	msg, changed, err := s.msgService.ConfirmDelivered(ctx, info.Id)
	if err != nil {
		log.CtxWarn(ctx, "confirm delivered failed: msg=%s, error=%v", info.Id, err)
		return
	}
	if !changed {
		return
	}

	s.pushToUser(info.SenderId, WSPushDelivered, &DeliveredData{
		ConversationId: msg.ConversationId,
		MessageId:      msg.Id,
		Status:         msg.Status,
	})
}

// pushToUser writes directly to every live connection of a user
func (s *WsServer) pushToUser(userId string, identifier int32, payload interface{}) {
	clients, ok := s.userMap.GetAll(userId)
	if !ok {
		return
	}
	for _, client := range clients {
		if err := client.Push(identifier, payload); err != nil {
			log.Debug("direct push failed: user_id=%s, conn_id=%s, error=%v", userId, client.ConnId, err)
		}
	}
}

// registerClient registers a client and announces presence to peers
func (s *WsServer) registerClient(ctx context.Context, client *Client) {
	cameOnline := s.userMap.Register(client)
	s.onlineConnNum.Add(1)
	if cameOnline {
		s.onlineUserNum.Add(1)
	}

	// Session handshake: the client learns whether frames are sealed.
	if err := client.Push(WSSessionKey, &SessionKeyData{SessionId: client.SessionId, Secured: s.secure != nil}); err != nil {
		log.CtxDebug(ctx, "session key push failed: user_id=%s, error=%v", client.UserId, err)
	}

	if cameOnline {
		go s.broadcastPresence(ctx, client.UserId, true)
	}

	log.CtxInfo(ctx, "client registered: user_id=%s, conn_id=%s, online_users=%d, online_conns=%d",
		client.UserId, client.ConnId, s.onlineUserNum.Load(), s.onlineConnNum.Load())
}

// unregisterClient unregisters a client and announces offline when the
// last connection is gone.
func (s *WsServer) unregisterClient(ctx context.Context, client *Client) {
	s.roomMap.Leave(client)
	wentOffline := s.userMap.Unregister(client)
	s.onlineConnNum.Add(-1)

	if wentOffline {
		s.onlineUserNum.Add(-1)
		go s.broadcastPresence(ctx, client.UserId, false)
	}

	log.CtxInfo(ctx, "client unregistered: user_id=%s, conn_id=%s, user_offline=%v, online_users=%d, online_conns=%d",
		client.UserId, client.ConnId, wentOffline, s.onlineUserNum.Load(), s.onlineConnNum.Load())
}

// broadcastPresence tells every connected counterparty about a presence
// change. Fan-out is scoped to users who share a conversation, never the
// whole connection table.
func (s *WsServer) broadcastPresence(ctx context.Context, userId string, online bool) {
	peers, err := s.convService.PeerIdsFor(ctx, userId)
	if err != nil {
		log.CtxWarn(ctx, "presence peer lookup failed: user_id=%s, error=%v", userId, err)
		return
	}

	payload := &PresenceData{UserId: userId, Online: online}
	for _, peer := range peers {
		if !s.userMap.IsOnline(peer) {
			continue
		}
		s.pushToUser(peer, WSPushPresence, payload)
	}
}

// UnregisterClient queues client for unregistration
func (s *WsServer) UnregisterClient(client *Client) {
	select {
	case s.unregisterChan <- client:
	default:
		log.Warn("unregister channel full: user_id=%s", client.UserId)
	}
}

// PushMessage implements service.Pusher. Returns whether the user has a
// live connection; actual delivery runs on the push workers.
func (s *WsServer) PushMessage(ctx context.Context, userId string, msg *entity.MessageInfo) bool {
	s.enqueue(&PushTask{TargetId: userId, Identifier: WSPushMessage, Payload: msg, Msg: msg})
	return s.userMap.IsOnline(userId)
}

// PushReadReceipt implements service.Pusher
func (s *WsServer) PushReadReceipt(ctx context.Context, userId, convId, readerId string, count int64) {
	s.enqueue(&PushTask{
		TargetId:   userId,
		Identifier: WSPushReadReceipt,
		Payload:    &ReadReceiptData{ConversationId: convId, ReaderId: readerId, Count: count},
	})
}

func (s *WsServer) enqueue(task *PushTask) {
	select {
	case s.pushChan <- task:
	default:
		// Queue full, the client will recover state on its next fetch
		log.Warn("push channel full, frame dropped: target=%s, identifier=%d", task.TargetId, task.Identifier)
	}
}

// GetOnlineUserCount returns online user count
func (s *WsServer) GetOnlineUserCount() int64 {
	return s.onlineUserNum.Load()
}

// GetOnlineConnCount returns online connection count
func (s *WsServer) GetOnlineConnCount() int64 {
	return s.onlineConnNum.Load()
}

// ========== Frame Handlers ==========

// HandleJoinConversation handles a room join request
func (s *WsServer) HandleJoinConversation(ctx context.Context, client *Client, payload []byte) ([]byte, error) {
	var req JoinConversationReq
	if err := json.Unmarshal(payload, &req); err != nil || req.ConversationId == "" {
		return nil, errcode.ErrInvalidParam
	}

	if _, err := s.convService.GetConversation(ctx, client.UserId, req.ConversationId); err != nil {
		return nil, err
	}

	left := s.roomMap.Join(client, req.ConversationId)
	return json.Marshal(&JoinConversationResp{ConversationId: req.ConversationId, LeftId: left})
}

// HandleTyping relays a typing state change to the other connections in
// the room. Requires the sender to have joined the conversation.
func (s *WsServer) HandleTyping(ctx context.Context, client *Client, payload []byte, started bool) ([]byte, error) {
	var req TypingReq
	if err := json.Unmarshal(payload, &req); err != nil || req.ConversationId == "" {
		return nil, errcode.ErrInvalidParam
	}
	if client.Room() != req.ConversationId {
		return nil, ErrNotInRoom
	}

	identifier := int32(WSPushTyping)
	if !started {
		identifier = WSPushStopTyping
	}

	data := &TypingData{ConversationId: req.ConversationId, UserId: client.UserId}
	for _, member := range s.roomMap.Members(req.ConversationId) {
		if member.UserId == client.UserId {
			continue
		}
		if err := member.Push(identifier, data); err != nil {
			log.CtxDebug(ctx, "typing push failed: user_id=%s, error=%v", member.UserId, err)
		}
	}
	return nil, nil
}

// HandleMarkRead handles a read mark over the socket
func (s *WsServer) HandleMarkRead(ctx context.Context, client *Client, payload []byte) ([]byte, error) {
	var req MarkReadReq
	if err := json.Unmarshal(payload, &req); err != nil || req.ConversationId == "" {
		return nil, errcode.ErrInvalidParam
	}

	count, err := s.convService.MarkRead(ctx, client.UserId, req.ConversationId)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&MarkReadResp{ConversationId: req.ConversationId, Count: count})
}

// HandlePresenceQuery answers presence for the requested users. Only
// counterparties the caller shares a conversation with are disclosed.
func (s *WsServer) HandlePresenceQuery(ctx context.Context, client *Client, payload []byte) ([]byte, error) {
	var req PresenceQueryReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errcode.ErrInvalidParam
	}

	peers, err := s.convService.PeerIdsFor(ctx, client.UserId)
	if err != nil {
		return nil, err
	}
	peerSet := make(map[string]bool, len(peers))
	for _, p := range peers {
		peerSet[p] = true
	}

	online := make(map[string]bool, len(req.UserIds))
	for _, userId := range req.UserIds {
		if !peerSet[userId] {
			continue
		}
		online[userId] = s.userMap.IsOnline(userId)
	}
	return json.Marshal(&PresenceQueryResp{Online: online})
}

// HandleSendMsg handles a send over the socket
func (s *WsServer) HandleSendMsg(ctx context.Context, client *Client, payload []byte) ([]byte, error) {
	var req SendMsgReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errcode.ErrInvalidParam
	}

	svcReq := &service.SendRequest{
		Content:   req.Content,
		Images:    req.Images,
		ProductId: req.ProductId,
	}

	var result *service.SendResult
	var err error
	if req.ConversationId != "" {
		result, err = s.msgService.SendToConversation(ctx, client.UserId, req.ConversationId, svcReq)
	} else {
		result, err = s.msgService.SendMessage(ctx, client.UserId, req.ReceiverId, svcReq)
	}
	if err != nil {
		return nil, err
	}

	return json.Marshal(&SendMsgResp{ConversationId: result.ConversationId, Messages: result.Messages})
}
