// Package auth issues and parses the HS256 access tokens handed out at login.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims extends the registered claims with the account id and whether the
// account may use the admin API.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	Superuser bool   `json:"su,omitempty"`
}

func GenerateToken(userID string, superuser bool, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:    userID,
		Superuser: superuser,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates tokenString and returns its claims. An expired token
// yields common.ErrTokenExpired; anything else unusable yields
// common.ErrorUnauthorized.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrorUnauthorized
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrorUnauthorized
	}

	return claims, nil
}
