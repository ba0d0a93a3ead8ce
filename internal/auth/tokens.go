package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a signed bearer credential. Exactly one of User
// and Token is set: User names an actor directly (short-lived, stateless),
// Token references a server-stored eternal token.
type Claims struct {
	User  string `json:"user,omitempty"`
	Token string `json:"token,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies bearer credentials with an HMAC secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs an issuer. ttl applies to user tokens only;
// eternal-token wrappers never expire.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// IssueUserToken signs a short-lived token naming an actor.
func (i *TokenIssuer) IssueUserToken(name string) (string, error) {
	now := i.now()
	claims := Claims{
		User: name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// IssueEternalToken signs a non-expiring wrapper around a stored token value.
// Revocation happens server-side by deleting the stored value.
func (i *TokenIssuer) IssueEternalToken(value string) (string, error) {
	claims := Claims{
		Token: value,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(i.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse verifies the signature and expiry of a signed credential. A user
// token without an expiry is rejected: the stateless path must be
// short-lived.
func (i *TokenIssuer) Parse(raw string) (*Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if _, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	if claims.User != "" && claims.ExpiresAt == nil {
		return nil, errors.New("auth: user token without expiry")
	}
	if claims.User == "" && claims.Token == "" {
		return nil, errors.New("auth: token carries no claim")
	}
	return &claims, nil
}
