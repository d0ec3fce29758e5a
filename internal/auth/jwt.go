// Package auth provides JWT issuance/validation, bcrypt password hashing,
// the authentication middleware, and the GitHub OAuth provider.
//
// Login flow: the auth service verifies credentials, records a session row,
// and issues a JWT carrying both the user ID (sub) and the session ID (sid).
// The token is stored in an HttpOnly cookie; on each request the middleware
// validates it and puts both IDs into the request context.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "progress-tracker"

// TokenLifetime is how long an access token (and its cookie) stays valid.
const TokenLifetime = 24 * time.Hour

// TokenService signs and verifies HS256 access tokens.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given HMAC secret.
// The secret should be at least 32 bytes of random data in production
// (e.g. JWT_SECRET=$(openssl rand -hex 32)).
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Claims is the token payload: standard registered claims with the user ID
// in "sub", plus the session ID so logout can revoke the matching row.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Generate creates and signs an access token for the given user and
// session, valid for TokenLifetime.
func (s *TokenService) Generate(userID, sessionID string) (string, error) {
	return s.GenerateWithDuration(userID, sessionID, TokenLifetime)
}

// GenerateWithDuration creates a token with a custom expiry. Used by tests
// to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID, sessionID string, d time.Duration) (string, error) {
	now := time.Now()

	c := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token string, returning the user ID and
// session ID it encodes.
//
// The library checks signature, expiry and issuer. Restricting the
// accepted algorithms to HS256 closes the algorithm-confusion hole where
// a forged token declares alg=none.
func (s *TokenService) Validate(tokenStr string) (userID, sessionID string, err error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", fmt.Errorf("auth: token expired")
		}
		return "", "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", "", fmt.Errorf("auth: token has no subject")
	}
	return c.Subject, c.SessionID, nil
}
