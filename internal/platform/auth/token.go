package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer mints session tokens for authenticated users.
type TokenIssuer struct {
	issuer     string
	signingKey []byte
	ttl        time.Duration
}

func NewTokenIssuer(issuer string, signingKey []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{issuer: issuer, signingKey: signingKey, ttl: ttl}
}

// Issue returns a signed HS256 token for the given identity.
func (i *TokenIssuer) Issue(userID, email, role string, emailVerified bool) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(i.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:         email,
		Role:          role,
		EmailVerified: emailVerified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}
