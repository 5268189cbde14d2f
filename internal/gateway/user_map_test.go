package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(userId, connId string) *Client {
	return NewClient(nil, userId, "", connId, "session-"+connId, nil)
}

func TestUserMapMultipleConnections(t *testing.T) {
	m := NewUserMap()

	c1 := testClient("u1", "conn1")
	c2 := testClient("u1", "conn2")

	// First connection brings the user online, the second does not.
	assert.True(t, m.Register(c1))
	assert.False(t, m.Register(c2))
	assert.True(t, m.IsOnline("u1"))
	assert.Equal(t, 1, m.OnlineUserCount())
	assert.Equal(t, 2, m.OnlineConnCount())

	clients, ok := m.GetAll("u1")
	require.True(t, ok)
	assert.Len(t, clients, 2)

	// The user stays online until the last connection drops.
	assert.False(t, m.Unregister(c1))
	assert.True(t, m.IsOnline("u1"))
	assert.True(t, m.Unregister(c2))
	assert.False(t, m.IsOnline("u1"))
	assert.Equal(t, 0, m.OnlineUserCount())
}

func TestUserMapUnregisterUnknown(t *testing.T) {
	m := NewUserMap()
	assert.False(t, m.Unregister(testClient("ghost", "conn1")))

	_, ok := m.GetAll("ghost")
	assert.False(t, ok)
}
