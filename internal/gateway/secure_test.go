package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureBoxRoundTrip(t *testing.T) {
	box, err := NewSecureBox("shared-secret")
	require.NoError(t, err)

	plaintext := []byte(`{"conversation_id":"c1"}`)
	sealed, err := box.Seal(plaintext)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "conversation_id")

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)

	// Each seal uses a fresh nonce.
	sealed2, err := box.Seal(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, sealed2)
}

func TestSecureBoxRejectsTampering(t *testing.T) {
	box, err := NewSecureBox("shared-secret")
	require.NoError(t, err)

	sealed, err := box.Seal([]byte("hello"))
	require.NoError(t, err)

	_, err = box.Open("AAAA" + sealed[4:])
	assert.Error(t, err)

	_, err = box.Open("not base64!!")
	assert.Error(t, err)

	_, err = box.Open("")
	assert.Error(t, err)
}

func TestSecureBoxKeysDiffer(t *testing.T) {
	a, err := NewSecureBox("secret-a")
	require.NoError(t, err)
	b, err := NewSecureBox("secret-b")
	require.NoError(t, err)

	sealed, err := a.Seal([]byte("hello"))
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.Error(t, err)
}

func TestSecureBoxRequiresSecret(t *testing.T) {
	_, err := NewSecureBox("")
	assert.Error(t, err)
}
