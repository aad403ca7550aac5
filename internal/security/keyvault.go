// Package security holds private key generation and at-rest encryption for
// custodial key material. Plaintext keys exist in memory only long enough to
// be encrypted or handed to the caller at account creation.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// PrivateKeyLength is the length of a generated custodial private key.
	PrivateKeyLength = 64

	keySize   = 32
	nonceSize = 24
)

const keyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	// ErrInvalidEncryptionKey is returned when the configured key is not
	// 32 bytes of base64.
	ErrInvalidEncryptionKey = errors.New("Encryption key must be 32 bytes, base64 encoded")

	// ErrDecryptionFailed is returned when a stored ciphertext cannot be
	// opened with the configured key.
	ErrDecryptionFailed = errors.New("Unable to decrypt stored key material")
)

// GeneratePrivateKey returns a new random alphanumeric private key.
func GeneratePrivateKey() (string, error) {
	buf := make([]byte, PrivateKeyLength)
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate private key: %w", err)
		}
		buf[i] = keyAlphabet[n.Int64()]
	}

	return string(buf), nil
}

// KeyVault encrypts and decrypts private keys with a symmetric secret key.
type KeyVault struct {
	key [keySize]byte
}

// NewKeyVault builds a vault from a base64-encoded 32-byte key.
func NewKeyVault(encodedKey string) (*KeyVault, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncryptionKey, err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidEncryptionKey, len(raw))
	}

	vault := &KeyVault{}
	copy(vault.key[:], raw)

	return vault, nil
}

// GenerateEncryptionKey returns a fresh base64-encoded vault key. Intended
// for bootstrapping environments that have not provisioned one yet.
func GenerateEncryptionKey() (string, error) {
	raw := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate encryption key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// Encrypt seals the plaintext and returns base64(nonce || ciphertext).
func (v *KeyVault) Encrypt(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &v.key)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. A ciphertext sealed with a different key, or
// tampered with in storage, fails with ErrDecryptionFailed.
func (v *KeyVault) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if len(raw) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &v.key)
	if !ok {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}
