package cache

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrCiphertextTooShort is returned when sealed data is shorter than a nonce.
var ErrCiphertextTooShort = errors.New("cache: ciphertext too short")

// sealed encrypts the output of another Serializer with ChaCha20-Poly1305.
type sealed struct {
	inner Serializer
	aead  cipher.AEAD
}

// Sealed wraps inner so entries are encrypted at rest. The secret is hashed
// with SHA-256 to produce a 32-byte key. Ciphertext is bound to the cache
// key it was stored under.
func Sealed(inner Serializer, secret string) (Serializer, error) {
	if secret == "" {
		return nil, errors.New("cache: encryption key is empty")
	}
	if inner == nil {
		inner = JSON
	}
	sum := sha256.Sum256([]byte(secret))
	aead, err := chacha20poly1305.New(sum[:])
	if err != nil {
		return nil, fmt.Errorf("create chacha20: %w", err)
	}
	return &sealed{inner: inner, aead: aead}, nil
}

func (s *sealed) Encode(key string, e *Entry) ([]byte, error) {
	plain, err := s.inner.Encode(key, e)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plain, []byte(key)), nil
}

func (s *sealed) Decode(key string, data []byte) (*Entry, error) {
	n := s.aead.NonceSize()
	if len(data) < n {
		return nil, ErrCiphertextTooShort
	}
	plain, err := s.aead.Open(nil, data[:n], data[n:], []byte(key))
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return s.inner.Decode(key, plain)
}
