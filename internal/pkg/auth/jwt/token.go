package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// DevTokenExpiration is the lifetime of tokens minted for development identities.
	DevTokenExpiration = 24 * time.Hour

	// TokenIssuer is set on tokens minted locally.
	TokenIssuer = "chatsync"

	// RoleAuthenticated is the role of a signed-in account.
	RoleAuthenticated = "authenticated"
)

// GenerateToken signs claims with HS256 after stamping issue and expiry times.
func GenerateToken(claims *Claims, secretKey string, duration time.Duration) (string, error) {
	now := time.Now()

	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = now.Add(duration).Unix()
	if claims.Issuer == "" {
		claims.Issuer = TokenIssuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secretKey))
}

// ParseToken validates tokenString against secretKey and returns its claims.
// Tokens without a subject are rejected.
func ParseToken(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}
