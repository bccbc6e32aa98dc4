package notifications

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	tokenIssuer   = "pagelite"
	tokenAudience = "unsubscribe"
	keyInfo       = "pagelite unsubscribe token v1"
)

// UnsubscribeClaims are carried by unsubscribe tokens.
type UnsubscribeClaims struct {
	Slug  string `json:"slug"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UnsubscribeSigner signs and verifies unsubscribe tokens.
type UnsubscribeSigner struct {
	key []byte
	now func() time.Time
}

// NewUnsubscribeSigner derives the signing key from secret.
func NewUnsubscribeSigner(secret string) (*UnsubscribeSigner, error) {
	if secret == "" {
		return nil, ErrSecretKeyRequired
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	return &UnsubscribeSigner{key: key, now: time.Now}, nil
}

// Sign issues a token that lets its holder remove email from the page.
// Tokens do not expire so that links in old emails keep working.
func (s *UnsubscribeSigner) Sign(slug, email string) (string, error) {
	claims := UnsubscribeClaims{
		Slug:  slug,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   tokenIssuer,
			Audience: jwt.ClaimStrings{tokenAudience},
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token and returns the page slug and email it was issued for.
func (s *UnsubscribeSigner) Verify(tokenString string) (slug, email string, err error) {
	claims := &UnsubscribeClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
	)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Slug == "" || claims.Email == "" {
		return "", "", ErrInvalidToken
	}

	return claims.Slug, claims.Email, nil
}
