// Package otp issues and checks the six digit one-time codes used to verify an email address and to
// authorize a password reset. The two purposes carry independent expiry windows; codes are stored on the
// user under separate fields so one channel can never validate the other.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// MaxCode is the largest code Issue can return.
const MaxCode = 999999

var (
	ErrMismatch = errors.New("otp does not match")
	ErrExpired  = errors.New("otp has expired")
)

// Purpose names an OTP channel.
type Purpose string

const (
	PurposeVerification  Purpose = "verification"
	PurposePasswordReset Purpose = "password_reset"
)

type Config struct {
	VerificationTTL  time.Duration
	PasswordResetTTL time.Duration
}

// Engine draws codes from a cryptographically secure source.
type Engine struct {
	ttl    map[Purpose]time.Duration
	random io.Reader
	now    func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRandom replaces crypto/rand.Reader.
func WithRandom(r io.Reader) Option {
	return func(e *Engine) { e.random = r }
}

func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		ttl: map[Purpose]time.Duration{
			PurposeVerification:  cfg.VerificationTTL,
			PurposePasswordReset: cfg.PasswordResetTTL,
		},
		random: rand.Reader,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// TTL returns the validity window of purpose.
func (e *Engine) TTL(purpose Purpose) time.Duration {
	return e.ttl[purpose]
}

// Issue returns a code uniform over [0, MaxCode] and its expiry.
func (e *Engine) Issue(purpose Purpose) (int, time.Time, error) {
	ttl, ok := e.ttl[purpose]
	if !ok || ttl <= 0 {
		return 0, time.Time{}, fmt.Errorf("no ttl configured for otp purpose %q", purpose)
	}

	n, err := rand.Int(e.random, big.NewInt(MaxCode+1))
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("generate otp: %w", err)
	}

	return int(n.Int64()), e.now().Add(ttl), nil
}

// Verify checks supplied against a stored code. A wrong code is reported as ErrMismatch even when the
// stored code has also expired.
func (e *Engine) Verify(stored *int, expiry *time.Time, supplied string) error {
	if !Matches(stored, supplied) {
		return ErrMismatch
	}
	if e.Expired(expiry) {
		return ErrExpired
	}
	return nil
}

// Expired reports whether expiry has passed. A missing expiry counts as expired.
func (e *Engine) Expired(expiry *time.Time) bool {
	return expiry == nil || e.now().After(*expiry)
}

// Matches compares supplied, parsed as a decimal integer, with stored. An absent stored code matches
// nothing.
func Matches(stored *int, supplied string) bool {
	if stored == nil {
		return false
	}

	code, err := Parse(supplied)
	if err != nil {
		return false
	}

	return code == *stored
}

// Parse reads a code. Any number of leading zeros is accepted, so "0012345", "012345" and "12345" are
// the same code.
func Parse(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("invalid otp %q", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid otp %q", s)
		}
	}

	digits := strings.TrimLeft(s, "0")
	if digits == "" {
		return 0, nil
	}
	if len(digits) > 6 {
		return 0, fmt.Errorf("invalid otp %q", s)
	}

	return strconv.Atoi(digits)
}

// Format renders code zero padded to six digits.
func Format(code int) string {
	return fmt.Sprintf("%06d", code)
}
