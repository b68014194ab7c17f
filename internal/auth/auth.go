package auth

import (
	"crypto/subtle"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// NewEditToken generates the secret edit-capability token handed to a
// timeline owner at creation time. Knowing the token is the only proof of
// ownership; there are no user accounts.
func NewEditToken() string {
	return uuid.NewString()
}

// CheckEditToken compares a presented token against the stored one in
// constant time.
func CheckEditToken(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// HashPassword hashes a private-timeline password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
