package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimsKey   = "claims"
	TokenCookie = "token"
	TokenTTL    = 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

func GenerateJWT(secret []byte, userID uint) (string, error) {
	expirationTime := time.Now().Add(TokenTTL)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func ValidateJWT(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func GetUserIDFromClaims(c *gin.Context) (uint, error) {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return 0, errors.New("claims not found in context")
	}

	registeredClaims, ok := claims.(*Claims)
	if !ok {
		return 0, errors.New("claims are not of type *Claims")
	}

	return registeredClaims.UserID, nil
}

// OptionalUserID is the requester id, 0 for anonymous visitors.
func OptionalUserID(c *gin.Context) uint {
	id, err := GetUserIDFromClaims(c)
	if err != nil {
		return 0
	}
	return id
}
