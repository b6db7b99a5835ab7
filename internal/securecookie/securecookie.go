// Package securecookie encrypts and authenticates cookie values so the
// client can neither read nor alter what the server stores in them.
package securecookie

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const keyInfo = "actions session cookies v1"

var ErrInvalidCookie = errors.New("invalid cookie value")

type Codec struct {
	aead cipher.AEAD
}

// New derives the sealing key from secret with HKDF-SHA256
func New(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("[securecookie New] secret is required")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("[securecookie New] derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("[securecookie New] %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Seal encrypts value. The cookie name is bound as additional data so a
// sealed value cannot be replayed under another cookie.
func (c *Codec) Seal(name, value string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(value)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("[securecookie Seal] %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(value), []byte(name))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (c *Codec) Open(name, sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", ErrInvalidCookie
	}

	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ciphertext, []byte(name))
	if err != nil {
		return "", ErrInvalidCookie
	}
	return string(plain), nil
}
