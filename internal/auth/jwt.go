package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/strandhq/strand/internal/models"
)

// Claims is the payload inside every JWT token.
//
// It carries the full identity tuple — workspace, user, display name, email,
// avatar — so every handler has the author snapshot in hand without touching
// the users table. Messages stamp these values at creation time; that's why
// the token holds display fields and not just IDs.
//
// jwt.RegisteredClaims gives us the standard ExpiresAt/IssuedAt/Issuer
// fields that libraries and tooling recognize.
type Claims struct {
	Identity models.Identity `json:"identity"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT for the given identity, valid for ttl.
//
// HS256: one shared secret, symmetric, fast. Fine for a single-service
// backend; if other services ever needed to verify without being able to
// issue, we'd move to RS256.
func GenerateToken(identity models.Identity, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "strand",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseToken validates a JWT string and extracts the claims. It verifies the
// signature, the expiry, and that the signing method is HMAC — rejecting
// "none"/RSA tokens closes the classic algorithm-confusion attack.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
