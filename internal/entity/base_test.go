package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, GenPairKey("by__1", "sl__2"), GenPairKey("sl__2", "by__1"))
	assert.Equal(t, "by__1:sl__2", GenPairKey("sl__2", "by__1"))
}

func TestSplitPairKey(t *testing.T) {
	a, b, ok := SplitPairKey("by__1:sl__2")
	require.True(t, ok)
	assert.Equal(t, "by__1", a)
	assert.Equal(t, "sl__2", b)

	// Ids containing underscores survive the round trip.
	a, b, ok = SplitPairKey(GenPairKey("by__10", "sl__3"))
	require.True(t, ok)
	assert.Equal(t, "by__10", a)
	assert.Equal(t, "sl__3", b)

	for _, bad := range []string{"", "no-separator", ":tail", "head:"} {
		_, _, ok := SplitPairKey(bad)
		assert.False(t, ok, "pair key %q should not split", bad)
	}
}
