package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for missing, expired or forged admin tokens
var ErrInvalidToken = errors.New("invalid admin token")

// AdminClaims is the payload of the admin session token
type AdminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionID returns the unique id of the admin session
func (c *AdminClaims) SessionID() string {
	return c.ID
}

// TokenIssuer signs and verifies HS256 admin session tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer whose tokens live for ttl
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a new token for username and returns it with its expiry
func (i *TokenIssuer) Issue(username string) (string, *AdminClaims, error) {
	now := i.now()
	claims := &AdminClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign admin token: %w", err)
	}
	return token, claims, nil
}

// Verify parses a token and checks its signature and expiry
func (i *TokenIssuer) Verify(token string) (*AdminClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &AdminClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
