package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamba-tutorias/backend/internal/models"
)

func TestSignJWTCarriesRoleSnapshot(t *testing.T) {
	token, err := SignJWT("secret", "user-1", models.RoleTutor, 60)
	require.NoError(t, err)

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, string(models.RoleTutor), claims.Role)
	require.NotNil(t, claims.ExpiresAt)
}

func TestSignJWTRejectsWrongSecret(t *testing.T) {
	token, err := SignJWT("secret", "user-1", models.RoleEstudiante, 60)
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte("otro"), nil
	})
	assert.Error(t, err)
}
