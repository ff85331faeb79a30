package crypto

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.Contains(hash, ":") {
		t.Fatalf("hash %q missing salt separator", hash)
	}

	ok, err := VerifyPassword("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatal("correct password rejected")
	}

	ok, err = VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatal("wrong password accepted")
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	first, _ := HashPassword("password1")
	second, _ := HashPassword("password1")
	if first == second {
		t.Fatal("same password produced identical hashes")
	}
}

func TestVerifyPasswordLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("legacy-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	ok, err := VerifyPassword("legacy-secret", string(legacy))
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatal("legacy bcrypt hash rejected")
	}

	ok, err = VerifyPassword("not-the-secret", string(legacy))
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatal("wrong password accepted against bcrypt hash")
	}

	if !NeedsRehash(string(legacy)) {
		t.Fatal("bcrypt hash not flagged for rehash")
	}
}

func TestNeedsRehashModernFormat(t *testing.T) {
	hash, _ := HashPassword("modern")
	if NeedsRehash(hash) {
		t.Fatal("PBKDF2 hash flagged for rehash")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, stored := range []string{"", "no-separator", "zz:zz", "abcd:nothex"} {
		if _, err := VerifyPassword("anything", stored); err == nil {
			t.Errorf("stored hash %q accepted without error", stored)
		}
	}
}
