package providers

import "testing"

func TestSecretCipherRoundTrip(t *testing.T) {
	c, err := NewSecretCipher("test-secret-key-material")
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}

	sealed, err := c.Encrypt("super-secret-api-key")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := c.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "super-secret-api-key" {
		t.Errorf("round trip = %q, want %q", got, "super-secret-api-key")
	}
}

func TestSecretCipherEmptyPlaintext(t *testing.T) {
	c, _ := NewSecretCipher("key")
	sealed, err := c.Encrypt("")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if sealed != nil {
		t.Errorf("empty plaintext should produce nil sealed value")
	}
	got, err := c.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "" {
		t.Errorf("decrypted empty value = %q, want empty", got)
	}
}

func TestSecretCipherWrongKeyFails(t *testing.T) {
	c1, _ := NewSecretCipher("key-one")
	c2, _ := NewSecretCipher("key-two")

	sealed, _ := c1.Encrypt("value")
	if _, err := c2.Decrypt(sealed); err == nil {
		t.Errorf("decrypting with wrong key should fail")
	}
}
