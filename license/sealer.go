package license

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealInfo = "goentitle license at rest v1"

// Sealer encrypts license tokens at rest with XChaCha20-Poly1305. The key is
// derived from a secret with HKDF-SHA256, so the signing secret can be reused
// without the two keys being related. The tenant id is bound as associated
// data: a sealed token copied under another tenant fails to open.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a sealing key from secret.
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init sealing cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts token for tenantID and returns base64url text.
func (s *Sealer) Seal(tenantID, token string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(token)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(token), []byte(tenantID))
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Any corruption or tenant mismatch is ErrDecryptionFailed.
func (s *Sealer) Open(tenantID, sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < s.aead.NonceSize()+s.aead.Overhead() {
		return "", ErrDecryptionFailed
	}
	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(tenantID))
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}
