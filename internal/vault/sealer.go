package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const sealInfo = "nhangara-identity wallet key sealing v1"

var ErrSealedKeyCorrupt = errors.New("sealed key cannot be opened")

// Sealer encrypts private keys at rest with AES-256-GCM under a key derived
// from the configured secret.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("seal secret is empty")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive seal key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns nonce||ciphertext. binding is authenticated but not stored, so
// a sealed key only opens for the same binding (the owning user id).
func (s *Sealer) Seal(plaintext, binding []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, binding), nil
}

func (s *Sealer) Open(sealed, binding []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, ErrSealedKeyCorrupt
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], binding)
	if err != nil {
		return nil, ErrSealedKeyCorrupt
	}
	return plaintext, nil
}
