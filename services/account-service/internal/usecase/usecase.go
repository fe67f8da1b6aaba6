package usecase

import (
	"context"
	"errors"
)

// MinPasswordLength is the shortest password accepted on registration, edit and reset.
const MinPasswordLength = 6

var (
	ErrUserNotFound        = errors.New("user does not exist")
	ErrDuplicateEmail      = errors.New("user with this email already exists")
	ErrDuplicatePhone      = errors.New("user with this phone number already exists")
	ErrPasswordTooShort    = errors.New("password must be at least 6 characters long")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrOtpMismatch         = errors.New("otp does not match")
	ErrOtpExpired          = errors.New("otp has expired")
	ErrSelfFollowForbidden = errors.New("can't follow yourself")
	ErrInvalidLink         = errors.New("invalid password reset link")
	ErrLinkExpired         = errors.New("link has expired")
	ErrLinkIncorrect       = errors.New("link is incorrect")
	ErrPasswordMismatch    = errors.New("passwords do not match")
)

// Notifier delivers an email. Flows treat a failure as non-fatal.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}
