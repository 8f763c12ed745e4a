// Package secrets keeps small credential blobs encrypted at rest.
//
// Export connectors use it for OAuth tokens that must survive restarts:
// the token file on disk is ChaCha20-Poly1305 sealed under a key derived
// from a passphrase, so a leaked scratch volume does not leak the
// credential.
package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/chacha20poly1305"
)

// Vault seals and opens credential blobs with ChaCha20-Poly1305.
type Vault struct {
	aead cipher.AEAD
}

// New derives a 32-byte key from the passphrase with SHA-256.
func New(passphrase string) (*Vault, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("secrets: passphrase is required")
	}
	key := sha256.Sum256([]byte(passphrase))
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("secrets: create cipher: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt seals the plaintext and returns base64 of nonce||ciphertext.
func (v *Vault) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secrets: generate nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (v *Vault) Decrypt(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("secrets: decode base64: %w", err)
	}
	nonceSize := v.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("secrets: ciphertext too short")
	}
	plaintext, err := v.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("secrets: decrypt: %w", err)
	}
	return plaintext, nil
}

// WriteFile seals the plaintext into a file readable only by the owner.
func (v *Vault) WriteFile(path string, plaintext []byte) error {
	sealed, err := v.Encrypt(plaintext)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(sealed), 0o600); err != nil {
		return fmt.Errorf("secrets: write %s: %w", path, err)
	}
	return nil
}

// ReadFile opens a file written by WriteFile.
func (v *Vault) ReadFile(path string) ([]byte, error) {
	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secrets: read %s: %w", path, err)
	}
	return v.Decrypt(string(sealed))
}
