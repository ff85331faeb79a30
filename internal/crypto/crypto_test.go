package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0xab}, 32)
}

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey())
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	plaintext := []byte("JBSWY3DPEHPK3PXP")
	sealed, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Fatal("ciphertext contains plaintext")
	}
	opened, err := c.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("got %q, want %q", opened, plaintext)
	}
}

func TestCipherNonceUniqueness(t *testing.T) {
	c, _ := NewCipher(testKey())
	first, _ := c.Encrypt([]byte("same input"))
	second, _ := c.Encrypt([]byte("same input"))
	if bytes.Equal(first, second) {
		t.Fatal("two encryptions of the same plaintext produced identical ciphertexts")
	}
}

func TestCipherRejectsBadKey(t *testing.T) {
	if _, err := NewCipher([]byte("short")); err != ErrInvalidKeySize {
		t.Fatalf("got %v, want ErrInvalidKeySize", err)
	}
}

func TestCipherRejectsTamperedCiphertext(t *testing.T) {
	c, _ := NewCipher(testKey())
	sealed, _ := c.Encrypt([]byte("secret"))
	sealed[len(sealed)-1] ^= 0x01
	if _, err := c.Decrypt(sealed); err == nil {
		t.Fatal("tampered ciphertext decrypted without error")
	}
}

func TestCipherRejectsTruncatedCiphertext(t *testing.T) {
	c, _ := NewCipher(testKey())
	if _, err := c.Decrypt([]byte{0x01, 0x02}); err != ErrInvalidCiphertext {
		t.Fatalf("got %v, want ErrInvalidCiphertext", err)
	}
}

func TestGenerateRandomTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		token, err := GenerateRandomToken(32)
		if err != nil {
			t.Fatalf("GenerateRandomToken: %v", err)
		}
		if seen[token] {
			t.Fatal("duplicate token generated")
		}
		seen[token] = true
	}
}

func TestGenerateSecretLength(t *testing.T) {
	for _, n := range []int{8, 16, 43} {
		secret, err := GenerateSecret(n)
		if err != nil {
			t.Fatalf("GenerateSecret(%d): %v", n, err)
		}
		if len(secret) != n {
			t.Errorf("GenerateSecret(%d) returned %d chars", n, len(secret))
		}
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Fatal("HashToken not deterministic")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Fatal("distinct inputs collided")
	}
	if len(HashToken("abc")) != 64 {
		t.Fatal("digest is not 64 hex chars")
	}
	if strings.ToLower(HashToken("abc")) != HashToken("abc") {
		t.Fatal("digest is not lowercase hex")
	}
}
