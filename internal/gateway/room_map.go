package gateway

import "sync"

// RoomMap tracks which connections have joined which conversation.
// Typing indicators only flow between connections in the same room.
// A connection is in at most one room: joining implies leaving.
type RoomMap struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client // convId -> connId -> client
}

// NewRoomMap creates a new RoomMap
func NewRoomMap() *RoomMap {
	return &RoomMap{rooms: make(map[string]map[string]*Client)}
}

// Join moves the client into convId and returns the room it left, if any
func (m *RoomMap) Join(client *Client, convId string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	left := m.leaveLocked(client)

	room, exists := m.rooms[convId]
	if !exists {
		room = make(map[string]*Client, 2)
		m.rooms[convId] = room
	}
	room[client.ConnId] = client
	client.setRoom(convId)
	return left
}

// Leave removes the client from its current room
func (m *RoomMap) Leave(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(client)
}

func (m *RoomMap) leaveLocked(client *Client) string {
	convId := client.Room()
	if convId == "" {
		return ""
	}

	if room, exists := m.rooms[convId]; exists {
		delete(room, client.ConnId)
		if len(room) == 0 {
			delete(m.rooms, convId)
		}
	}
	client.setRoom("")
	return convId
}

// Members returns a copy of the connections currently in convId
func (m *RoomMap) Members(convId string) []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, exists := m.rooms[convId]
	if !exists {
		return nil
	}

	members := make([]*Client, 0, len(room))
	for _, c := range room {
		members = append(members, c)
	}
	return members
}
