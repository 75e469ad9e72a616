package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SscSPs/exchange_ledger/internal/middleware"
)

// GenerateJWT signs an HS256 token for ownerID. An empty role yields a regular owner token.
func GenerateJWT(ownerID, role, secret string, expiryDuration time.Duration, issuer string) (string, error) {
	now := time.Now()
	claims := middleware.LedgerClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   ownerID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiryDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
