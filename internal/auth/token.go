// Package auth issues and verifies the bearer tokens carried by account requests.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/jonboulle/clockwork"

	"sharelink/internal/model"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMissingSecret = errors.New("jwt secret is required")
)

const issuer = "sharelink"

// Claims is the JWT payload. Subject holds the decimal user id.
type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Token is a signed access token and its expiry.
type Token struct {
	AccessToken string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// TokenAuth signs HS256 tokens and verifies them against its clock.
type TokenAuth struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewTokenAuth(secret string, ttl time.Duration, clock clockwork.Clock) (*TokenAuth, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenAuth{secret: []byte(secret), ttl: ttl, clock: clock}, nil
}

func (a *TokenAuth) Issue(u *model.User) (*Token, error) {
	now := a.clock.Now()
	exp := now.Add(a.ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Token{AccessToken: signed, ExpiresAt: exp}, nil
}

// Verify checks signature, algorithm and time claims and returns the user id.
func (a *TokenAuth) Verify(token string) (int64, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return 0, ErrInvalidToken
	}

	now := a.clock.Now()
	if !claims.VerifyExpiresAt(now, true) || !claims.VerifyNotBefore(now, false) || !claims.VerifyIssuer(issuer, true) {
		return 0, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
