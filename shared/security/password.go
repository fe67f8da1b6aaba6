package security

import (
	"errors"
	"fmt"

	"github.com/matthewhartstonge/argon2"
)

var ErrEmptyPassword = errors.New("empty password")

// PasswordHasher hashes passwords with salted argon2id and verifies them against stored hashes.
type PasswordHasher struct {
	config argon2.Config
}

// NewPasswordHasher creates a hasher using the library's recommended argon2id parameters.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{config: argon2.DefaultConfig()}
}

// NewPasswordHasherWithConfig creates a hasher with explicit argon2 parameters.
func NewPasswordHasherWithConfig(config argon2.Config) *PasswordHasher {
	return &PasswordHasher{config: config}
}

// Hash returns the PHC encoded hash of password. A fresh salt is drawn per call.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	encoded, err := h.config.HashEncoded([]byte(password))
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(encoded), nil
}

// Verify reports whether password matches encodedHash.
func (h *PasswordHasher) Verify(password, encodedHash string) (bool, error) {
	ok, err := argon2.VerifyEncoded([]byte(password), []byte(encodedHash))
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}

	return ok, nil
}
