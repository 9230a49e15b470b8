package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chamba-tutorias/backend/internal/models"
)

// Claims is the session payload. Role is a snapshot taken at signing time;
// handlers that change a user's role re-issue the cookie so the claim keeps
// up with the database.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// SignJWT issues an HS256 session token for the user.
func SignJWT(secret string, userID string, role models.Role, expiresMin int) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expiresMin) * time.Minute)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}
