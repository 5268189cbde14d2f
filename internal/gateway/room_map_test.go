package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomMapJoinImpliesLeave(t *testing.T) {
	m := NewRoomMap()

	c1 := testClient("u1", "conn1")
	c2 := testClient("u2", "conn2")

	assert.Equal(t, "", m.Join(c1, "conv-a"))
	m.Join(c2, "conv-a")
	assert.Len(t, m.Members("conv-a"), 2)

	// Joining another room leaves the first.
	left := m.Join(c1, "conv-b")
	assert.Equal(t, "conv-a", left)
	assert.Equal(t, "conv-b", c1.Room())
	assert.Len(t, m.Members("conv-a"), 1)
	assert.Len(t, m.Members("conv-b"), 1)
}

func TestRoomMapLeave(t *testing.T) {
	m := NewRoomMap()

	c1 := testClient("u1", "conn1")
	m.Join(c1, "conv-a")
	m.Leave(c1)

	assert.Equal(t, "", c1.Room())
	assert.Nil(t, m.Members("conv-a"))

	// Leaving twice is harmless.
	m.Leave(c1)
}
