package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the claims carried by a session token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenConfig holds the signing configuration of session tokens.
type TokenConfig struct {
	Secret    string
	Issuer    string
	ExpiresIn time.Duration
}

// JWTAuthenticator signs and validates HS256 session tokens bound to a user id.
type JWTAuthenticator struct {
	cfg TokenConfig
	now func() time.Time
}

// NewJWTAuthenticator creates a new JWTAuthenticator instance.
func NewJWTAuthenticator(cfg TokenConfig) *JWTAuthenticator {
	return &JWTAuthenticator{
		cfg: cfg,
		now: time.Now,
	}
}

// WithClock replaces the time source used for issuing and validating tokens.
func (a *JWTAuthenticator) WithClock(now func() time.Time) *JWTAuthenticator {
	a.now = now
	return a
}

// Issue mints a signed token for userID that expires after the configured window.
func (a *JWTAuthenticator) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("empty user id")
	}

	now := a.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    a.cfg.Issuer,
			Audience:  jwt.ClaimStrings{a.cfg.Issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.ExpiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenStr, err := token.SignedString([]byte(a.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenStr, nil
}

// Resolve validates tokenString and returns the user id it was issued to.
// Every validation failure is reported as ErrInvalidToken.
func (a *JWTAuthenticator) Resolve(tokenString string) (string, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return []byte(a.cfg.Secret), nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithAudience(a.cfg.Issuer),
		jwt.WithIssuer(a.cfg.Issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}
