package account

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/testutil"
)

func TestChangeRoleUnknownUser(t *testing.T) {
	svc := NewService(testutil.OpenDB(t))
	_, err := svc.ChangeRole(uuid.New(), models.RoleTutor)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPromotionRequiresPhone(t *testing.T) {
	svc := NewService(testutil.OpenDB(t))

	user := models.User{Role: models.RoleEstudiante}
	require.NoError(t, svc.DB.Create(&user).Error)

	_, err := svc.ChangeRole(user.ID, models.RoleTutor)
	assert.ErrorIs(t, err, ErrPhoneRequired)
}

func TestPromotionRequiresWhitelist(t *testing.T) {
	svc := NewService(testutil.OpenDB(t))

	user := models.User{Phone: "+525512345678", Role: models.RoleEstudiante}
	require.NoError(t, svc.DB.Create(&user).Error)

	_, err := svc.ChangeRole(user.ID, models.RoleTutor)
	assert.ErrorIs(t, err, ErrNotApproved)

	// Role must stay untouched after a refused promotion.
	var reloaded models.User
	require.NoError(t, svc.DB.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, models.RoleEstudiante, reloaded.Role)
}

func TestPromotionConsumesApproval(t *testing.T) {
	svc := NewService(testutil.OpenDB(t))

	user := models.User{Phone: "+525512345678", Role: models.RoleEstudiante}
	require.NoError(t, svc.DB.Create(&user).Error)
	require.NoError(t, svc.DB.Create(&models.ApprovedTutor{Phone: "525512345678", Name: "Ana"}).Error)

	promoted, err := svc.ChangeRole(user.ID, models.RoleTutor)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTutor, promoted.Role)

	var approved models.ApprovedTutor
	require.NoError(t, svc.DB.First(&approved, "phone = ?", "525512345678").Error)
	require.NotNil(t, approved.UsedAt)
	firstUse := *approved.UsedAt

	// Re-promotion works and keeps the original stamp.
	require.NoError(t, svc.DB.Model(&user).Update("role", models.RoleEstudiante).Error)
	_, err = svc.ChangeRole(user.ID, models.RoleTutor)
	require.NoError(t, err)

	require.NoError(t, svc.DB.First(&approved, "phone = ?", "525512345678").Error)
	require.NotNil(t, approved.UsedAt)
	assert.Equal(t, firstUse, *approved.UsedAt)
}

func TestDemotionIsUngated(t *testing.T) {
	svc := NewService(testutil.OpenDB(t))

	user := models.User{Phone: "+525512345678", Role: models.RoleTutor}
	require.NoError(t, svc.DB.Create(&user).Error)

	demoted, err := svc.ChangeRole(user.ID, models.RoleEstudiante)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEstudiante, demoted.Role)
}
