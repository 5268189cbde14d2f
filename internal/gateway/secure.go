package gateway

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SecureBox seals and opens frame payloads with AES-256-GCM. The key is
// derived from a shared secret both ends hold, so this is transport
// obfuscation for frame bodies, not end-to-end encryption.
type SecureBox struct {
	aead cipher.AEAD
}

// NewSecureBox derives the frame key from the shared secret
func NewSecureBox(sharedSecret string) (*SecureBox, error) {
	if sharedSecret == "" {
		return nil, errors.New("empty shared secret")
	}

	kdf := hkdf.New(sha256.New, []byte(sharedSecret), []byte("marketchat-ws"), []byte("frame-key"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SecureBox{aead: aead}, nil
}

// Seal encrypts plaintext with a fresh nonce and returns
// base64(nonce || ciphertext).
func (b *SecureBox) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := b.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal
func (b *SecureBox) Open(sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, err
	}
	if len(raw) < b.aead.NonceSize() {
		return nil, errors.New("sealed payload too short")
	}

	nonce, ciphertext := raw[:b.aead.NonceSize()], raw[b.aead.NonceSize():]
	return b.aead.Open(nil, nonce, ciphertext, nil)
}
