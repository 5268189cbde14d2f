package gateway

import (
	"sync"
	"time"
)

// UserMap tracks every live connection per user. A user is online while
// at least one connection remains; presence transitions happen only on
// the first connection and the last disconnect.
type UserMap struct {
	mu    sync.RWMutex
	users map[string]*userConns
}

type userConns struct {
	Clients []*Client
	Time    time.Time
}

// NewUserMap creates a new UserMap
func NewUserMap() *UserMap {
	return &UserMap{users: make(map[string]*userConns)}
}

// Register adds a client. Returns true if this is the user's first
// connection, meaning the user just came online.
func (m *UserMap) Register(client *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, exists := m.users[client.UserId]
	if !exists {
		conns = &userConns{Clients: make([]*Client, 0, 4)}
		m.users[client.UserId] = conns
	}

	conns.Clients = append(conns.Clients, client)
	conns.Time = time.Now()
	return !exists
}

// Unregister removes a client. Returns true when the user's connection
// set became empty, meaning the user just went offline.
func (m *UserMap) Unregister(client *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, exists := m.users[client.UserId]
	if !exists {
		return false
	}

	remaining := make([]*Client, 0, len(conns.Clients))
	for _, c := range conns.Clients {
		if c.ConnId != client.ConnId {
			remaining = append(remaining, c)
		}
	}
	conns.Clients = remaining

	if len(conns.Clients) == 0 {
		delete(m.users, client.UserId)
		return true
	}
	return false
}

// GetAll returns a copy of the user's connections
func (m *UserMap) GetAll(userId string) ([]*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conns, exists := m.users[userId]
	if !exists {
		return nil, false
	}

	clients := make([]*Client, len(conns.Clients))
	copy(clients, conns.Clients)
	return clients, true
}

// IsOnline reports whether the user has any live connection
func (m *UserMap) IsOnline(userId string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conns, exists := m.users[userId]
	return exists && len(conns.Clients) > 0
}

// OnlineUserCount returns the number of distinct online users
func (m *UserMap) OnlineUserCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

// OnlineConnCount returns the total number of connections
func (m *UserMap) OnlineConnCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, conns := range m.users {
		count += len(conns.Clients)
	}
	return count
}
