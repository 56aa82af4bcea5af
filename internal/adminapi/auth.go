package adminapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/neuronai/neuronbot/internal/common"
)

// Claims carries the standard claims plus the authenticated operator name.
type Claims struct {
	jwt.RegisteredClaims
	Username string
}

func generateToken(username string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		Username: username,
	})

	return token.SignedString(secretKey)
}

func usernameFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", common.ErrInvalidToken
	}
	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.Username, nil
}
