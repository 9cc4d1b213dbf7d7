package utils

import (
	"github.com/golang-jwt/jwt"
)

// ParseJWTToken validates a bearer token issued by the user service and
// returns the user id and role claims. Token issuance lives there, not here.
func ParseJWTToken(tokenString string, jwtSecretKey string) (int64, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecretKey), nil
	})
	if err != nil || !token.Valid {
		return 0, "", jwt.ErrSignatureInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", jwt.ErrSignatureInvalid
	}

	userID, ok := claims["userID"].(float64)
	if !ok {
		return 0, "", jwt.ErrSignatureInvalid
	}

	role, ok := claims["role"].(string)
	if !ok {
		return 0, "", jwt.ErrSignatureInvalid
	}

	return int64(userID), role, nil
}
