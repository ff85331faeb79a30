package auth

import (
	"fmt"
	"unicode"

	"github.com/vhkhang/authcore/internal/config"
)

// ValidatePassword checks a candidate password against the configured
// policy. History checks happen separately, against the stored hashes.
func ValidatePassword(password string, policy config.PasswordPolicy) error {
	if len(password) < policy.MinLength {
		return &PasswordPolicyError{Reason: fmt.Sprintf("must be at least %d characters", policy.MinLength)}
	}
	if len(password) > policy.MaxLength {
		return &PasswordPolicyError{Reason: fmt.Sprintf("must be at most %d characters", policy.MaxLength)}
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if policy.RequireUpper && !hasUpper {
		return &PasswordPolicyError{Reason: "must contain an uppercase letter"}
	}
	if policy.RequireLower && !hasLower {
		return &PasswordPolicyError{Reason: "must contain a lowercase letter"}
	}
	if policy.RequireDigit && !hasDigit {
		return &PasswordPolicyError{Reason: "must contain a digit"}
	}
	if policy.RequireSpecial && !hasSpecial {
		return &PasswordPolicyError{Reason: "must contain a special character"}
	}
	return nil
}
