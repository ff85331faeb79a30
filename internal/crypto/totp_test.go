package crypto

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateTOTPSecret(t *testing.T) {
	secret, url, err := GenerateTOTPSecret("authcore", "alice")
	if err != nil {
		t.Fatalf("GenerateTOTPSecret: %v", err)
	}
	if secret == "" {
		t.Fatal("empty secret")
	}
	if !strings.HasPrefix(url, "otpauth://totp/") {
		t.Fatalf("unexpected url %q", url)
	}
	if !strings.Contains(url, "authcore") || !strings.Contains(url, "alice") {
		t.Fatalf("url %q missing issuer or account", url)
	}
}

func TestValidateTOTPCodeSkew(t *testing.T) {
	secret, _, err := GenerateTOTPSecret("authcore", "alice")
	if err != nil {
		t.Fatalf("GenerateTOTPSecret: %v", err)
	}
	now := time.Date(2025, 6, 1, 12, 0, 15, 0, time.UTC)

	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"current step", 0, true},
		{"one step behind", -30 * time.Second, true},
		{"one step ahead", 30 * time.Second, true},
		{"two steps behind", -60 * time.Second, false},
		{"two steps ahead", 60 * time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := GenerateTOTPCode(secret, now.Add(tt.offset))
			if err != nil {
				t.Fatalf("GenerateTOTPCode: %v", err)
			}
			if got := ValidateTOTPCode(code, secret, now); got != tt.want {
				t.Errorf("offset %v: got %v, want %v", tt.offset, got, tt.want)
			}
		})
	}
}

func TestValidateTOTPCodeRejectsGarbage(t *testing.T) {
	secret, _, _ := GenerateTOTPSecret("authcore", "alice")
	now := time.Now()
	for _, code := range []string{"", "000000", "abcdef", "12345", "1234567"} {
		valid, err := GenerateTOTPCode(secret, now)
		if err != nil {
			t.Fatalf("GenerateTOTPCode: %v", err)
		}
		if code == valid {
			continue
		}
		if ValidateTOTPCode(code, secret, now) {
			t.Errorf("code %q accepted", code)
		}
	}
}

func TestValidateTOTPCodeWrongSecret(t *testing.T) {
	secretA, _, _ := GenerateTOTPSecret("authcore", "alice")
	secretB, _, _ := GenerateTOTPSecret("authcore", "bob")
	now := time.Now()
	code, err := GenerateTOTPCode(secretA, now)
	if err != nil {
		t.Fatalf("GenerateTOTPCode: %v", err)
	}
	if ValidateTOTPCode(code, secretB, now) {
		t.Fatal("code for one secret validated against another")
	}
}
