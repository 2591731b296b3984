package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

var (
	ErrInvalidKeySize    = errors.New("invalid key size: must be 32 bytes for AES-256")
	ErrInvalidMasterKey  = errors.New("invalid master key: must be base64 of 32 bytes")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrInvalidCiphertext = errors.New("invalid ciphertext: too short")
)

// FieldCipher encrypts individual column values with AES-256-GCM. A nil
// *FieldCipher passes values through unchanged.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher builds a cipher from a base64 encoded master key. An empty
// key disables encryption and returns nil.
func NewFieldCipher(masterKeyBase64 string) (*FieldCipher, error) {
	if masterKeyBase64 == "" {
		return nil, nil
	}

	key, err := base64.StdEncoding.DecodeString(masterKeyBase64)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidMasterKey
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return &FieldCipher{aead: aead}, nil
}

// Enabled reports whether values are actually encrypted.
func (c *FieldCipher) Enabled() bool {
	return c != nil
}

// EncryptField encrypts an optional value. Nil stays nil.
func (c *FieldCipher) EncryptField(value *string) (*string, error) {
	if c == nil || value == nil {
		return value, nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	// nonce is prepended to the sealed value
	sealed := c.aead.Seal(nonce, nonce, []byte(*value), nil)
	encoded := base64.StdEncoding.EncodeToString(sealed)
	return &encoded, nil
}

// DecryptField reverses EncryptField. Nil stays nil.
func (c *FieldCipher) DecryptField(value *string) (*string, error) {
	if c == nil || value == nil {
		return value, nil
	}

	sealed, err := base64.StdEncoding.DecodeString(*value)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	decoded := string(plaintext)
	return &decoded, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}

// GenerateKey generates a random 256-bit (32-byte) key for AES-256
func GenerateKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}
