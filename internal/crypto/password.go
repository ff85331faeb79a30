package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/vhkhang/authcore/params"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

var ErrMalformedHash = errors.New("malformed password hash")

// HashPassword derives a PBKDF2-SHA256 hash with a per-password random
// salt and returns it as "salt:hash" (hex).
func HashPassword(password string) (string, error) {
	salt := make([]byte, params.PBKDF2SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(password), salt, params.PBKDF2Iterations, params.PBKDF2KeySize, sha256.New)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword checks password against a stored hash. Legacy bcrypt
// hashes are recognized by their prefix and verified with bcrypt, so
// credentials issued before the PBKDF2 migration keep working.
func VerifyPassword(password, stored string) (bool, error) {
	if isBcryptHash(stored) {
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	}

	saltHex, hashHex, ok := strings.Cut(stored, ":")
	if !ok {
		return false, ErrMalformedHash
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := hex.DecodeString(hashHex)
	if err != nil {
		return false, ErrMalformedHash
	}
	got := pbkdf2.Key([]byte(password), salt, params.PBKDF2Iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// NeedsRehash reports whether a stored hash uses the legacy bcrypt format
// and should be upgraded on the next successful login.
func NeedsRehash(stored string) bool {
	return isBcryptHash(stored)
}

func isBcryptHash(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}
