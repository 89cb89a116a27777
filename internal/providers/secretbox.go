package providers

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

// SecretCipher encrypts provider API keys at rest in provider_config.
// A process-wide key is derived from the configured secret via HKDF so the
// raw secret never touches secretbox directly.
type SecretCipher struct {
	key [32]byte
}

func NewSecretCipher(secret string) (*SecretCipher, error) {
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("enrichr-provider-secrets"))
	var key [32]byte
	if _, err := io.ReadFull(kdf, key[:]); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &SecretCipher{key: key}, nil
}

// Encrypt seals plaintext behind a random nonce, returning nonce||ciphertext.
func (c *SecretCipher) Encrypt(plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, nil
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+secretbox.Overhead)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, []byte(plaintext), &nonce, &c.key)
	return out, nil
}

// Decrypt reverses Encrypt. An empty sealed value decrypts to "".
func (c *SecretCipher) Decrypt(sealed []byte) (string, error) {
	if len(sealed) == 0 {
		return "", nil
	}
	if len(sealed) < 24 {
		return "", fmt.Errorf("sealed value too short")
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])

	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &c.key)
	if !ok {
		return "", fmt.Errorf("decrypt: authentication failed")
	}
	return string(plain), nil
}
