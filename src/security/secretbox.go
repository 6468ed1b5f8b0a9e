package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// Box seals and opens small secrets (the executor's private key) with
// nacl/secretbox. The 24-byte nonce is prepended to the ciphertext and the
// whole blob is base64-encoded for storage in the environment.
type Box struct {
	key [32]byte
}

func NewBox(base64Key string) (*Box, error) {
	if base64Key == "" {
		return nil, errors.New("missing EXECUTOR_KEY_ENCRYPTION_KEY")
	}
	raw, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("decode EXECUTOR_KEY_ENCRYPTION_KEY: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("EXECUTOR_KEY_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(raw))
	}
	b := &Box{}
	copy(b.key[:], raw)
	return b, nil
}

func (b *Box) Encrypt(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (b *Box) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(raw) < 24 {
		return "", errors.New("invalid ciphertext")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	opened, ok := secretbox.Open(nil, raw[24:], &nonce, &b.key)
	if !ok {
		return "", errors.New("secretbox open failed")
	}
	return string(opened), nil
}

// DecryptString opens a secret using the key from the environment.
func DecryptString(encoded string) (string, error) {
	config := GetConfig()
	box, err := NewBox(config.ExecutorKeyEncryptionKey)
	if err != nil {
		return "", err
	}
	return box.Decrypt(encoded)
}
