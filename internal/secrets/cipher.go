// Package secrets encrypts settings values at rest with AES-256-GCM.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/tournevent/myparcel/pkg/carrier"
)

const (
	keySize = 32
	ivSize  = 12
	tagSize = 16
)

var hexKey = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// Cipher encrypts and decrypts with a key given as 64 hex characters or as
// base64 of 32 bytes. The key is validated on use, so a missing key only
// fails the operations that need it.
type Cipher struct {
	rawKey string
}

// NewCipher creates a cipher for the given key material.
func NewCipher(rawKey string) *Cipher {
	return &Cipher{rawKey: strings.TrimSpace(rawKey)}
}

// ParseKey decodes key material into 32 bytes.
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, carrier.ErrMissingEncryptionKey
	}
	var key []byte
	if hexKey.MatchString(raw) {
		key, _ = hex.DecodeString(raw)
	} else {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, carrier.ErrInvalidEncryptionKey.WithCause(err)
		}
		key = decoded
	}
	if len(key) != keySize {
		return nil, carrier.ErrInvalidEncryptionKey
	}
	return key, nil
}

// Configured reports whether key material is present. It does not validate it.
func (c *Cipher) Configured() bool {
	return c.rawKey != ""
}

func (c *Cipher) aead() (cipher.AEAD, error) {
	key, err := ParseKey(c.rawKey)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return cipher.NewGCMWithNonceSize(block, ivSize)
}

// Encrypt returns base64(iv || tag || ciphertext).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	aead, err := c.aead()
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}

	// Seal appends the tag after the ciphertext; the stored layout puts it first.
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, ivSize+tagSize+len(ct))
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ct...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(payload string) (string, error) {
	aead, err := c.aead()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", carrier.ErrInvalidCiphertext.WithCause(err)
	}
	if len(raw) < ivSize+tagSize {
		return "", carrier.ErrInvalidCiphertext
	}

	iv := raw[:ivSize]
	tag := raw[ivSize : ivSize+tagSize]
	ct := raw[ivSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plain, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", carrier.ErrInvalidCiphertext.WithCause(err)
	}
	return string(plain), nil
}
