// Package auth issues and validates the portal's session tokens.
package auth

import (
	"time"

	"github.com/dkosarev/acportal/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the authenticated account name and its GM flag alongside
// the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	IsGM     bool   `json:"is_gm"`
}

func GenerateToken(username string, isGM bool, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Username: username,
		IsGM:     isGM,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, shared.ErrorInvalidToken
	}

	return claims, nil
}
