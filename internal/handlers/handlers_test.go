package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/services/account"
	"github.com/chamba-tutorias/backend/internal/services/otp"
	"github.com/chamba-tutorias/backend/internal/testutil"
	"github.com/chamba-tutorias/backend/internal/utils"
)

const testSecret = "test-secret"

type nopSender struct{}

func (*nopSender) Send(to, message string) error { return nil }

// asUser replaces the JWT middleware pair in tests.
func asUser(id uuid.UUID) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("userId", id.String())
		return c.Next()
	}
}

func jsonReq(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// sessionRole extracts the role claim from the ct_token cookie of a
// response, failing the test when no session cookie was set.
func sessionRole(t *testing.T, resp *http.Response) string {
	t.Helper()
	for _, ck := range resp.Cookies() {
		if ck.Name != authCookie {
			continue
		}
		claims := &utils.Claims{}
		_, err := jwtlib.ParseWithClaims(ck.Value, claims, func(*jwtlib.Token) (interface{}, error) {
			return []byte(testSecret), nil
		})
		require.NoError(t, err)
		return claims.Role
	}
	t.Fatal("session cookie not set")
	return ""
}

func seedWhitelistedStudent(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := models.User{Phone: "+525512345678", Role: models.RoleEstudiante}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.ApprovedTutor{Phone: "525512345678", Name: "Ana"}).Error)
	return &user
}

func TestUpsertProfileInvalidSubjectLeavesRoleUntouched(t *testing.T) {
	db := testutil.OpenDB(t)
	user := seedWhitelistedStudent(t, db)

	h := NewTutorProfileHandler(db, testSecret, 60)
	app := fiber.New()
	app.Post("/tutor/profile", asUser(user.ID), h.Upsert)

	resp, err := app.Test(jsonReq("POST", "/tutor/profile", `{"subjects":["ASTROLOGIA"]}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// The rejected request must not promote the user or burn the
	// whitelist entry.
	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, models.RoleEstudiante, reloaded.Role)

	var approved models.ApprovedTutor
	require.NoError(t, db.First(&approved, "phone = ?", "525512345678").Error)
	assert.Nil(t, approved.UsedAt)

	var profiles int64
	db.Model(&models.TutorProfile{}).Count(&profiles)
	assert.Zero(t, profiles)
}

func TestUpsertProfilePromotionRefreshesSession(t *testing.T) {
	db := testutil.OpenDB(t)
	user := seedWhitelistedStudent(t, db)

	h := NewTutorProfileHandler(db, testSecret, 60)
	app := fiber.New()
	app.Post("/tutor/profile", asUser(user.ID), h.Upsert)

	resp, err := app.Test(jsonReq("POST", "/tutor/profile", `{"subjects":["MATEMATICAS"]}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, models.RoleTutor, reloaded.Role)

	// The fresh cookie must already carry the new role.
	assert.Equal(t, string(models.RoleTutor), sessionRole(t, resp))
}

func TestDeleteProfileDemotionRefreshesSession(t *testing.T) {
	db := testutil.OpenDB(t)
	user := seedWhitelistedStudent(t, db)
	require.NoError(t, db.Model(user).Update("role", models.RoleTutor).Error)
	require.NoError(t, db.Create(&models.TutorProfile{UserID: user.ID}).Error)

	h := NewTutorProfileHandler(db, testSecret, 60)
	app := fiber.New()
	app.Delete("/tutor/profile", asUser(user.ID), h.Delete)

	resp, err := app.Test(jsonReq("DELETE", "/tutor/profile", ""))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.RoleEstudiante), sessionRole(t, resp))
}

func TestUpdateRoleRefreshesSessionCookie(t *testing.T) {
	db := testutil.OpenDB(t)
	user := seedWhitelistedStudent(t, db)

	h := NewUserHandler(db, account.NewService(db), testSecret, 60)
	app := fiber.New()
	app.Patch("/user/role", asUser(user.ID), h.UpdateRole)

	resp, err := app.Test(jsonReq("PATCH", "/user/role", `{"role":"TUTOR"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.RoleTutor), sessionRole(t, resp))

	resp, err = app.Test(jsonReq("PATCH", "/user/role", `{"role":"ESTUDIANTE"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.RoleEstudiante), sessionRole(t, resp))
}

func TestUpdateRoleNotApprovedSetsNoCookie(t *testing.T) {
	db := testutil.OpenDB(t)
	user := models.User{Phone: "+525599999999", Role: models.RoleEstudiante}
	require.NoError(t, db.Create(&user).Error)

	h := NewUserHandler(db, account.NewService(db), testSecret, 60)
	app := fiber.New()
	app.Patch("/user/role", asUser(user.ID), h.UpdateRole)

	resp, err := app.Test(jsonReq("PATCH", "/user/role", `{"role":"TUTOR"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	for _, ck := range resp.Cookies() {
		assert.NotEqual(t, authCookie, ck.Name)
	}
}

func TestVerifyOTPWrongCodeIsBadRequest(t *testing.T) {
	db := testutil.OpenDB(t)
	otpSvc := otp.NewService(db, &nopSender{})
	require.NoError(t, otpSvc.SendCode("+525512345678"))

	h := NewAuthHandler(otpSvc, testSecret, 60)
	app := fiber.New()
	app.Post("/auth/verify-otp", h.VerifyOTP)

	resp, err := app.Test(jsonReq("POST", "/auth/verify-otp",
		`{"phone":"+525512345678","code":"999999"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdminUpdateApprovedClearsNotes(t *testing.T) {
	db := testutil.OpenDB(t)
	entry := models.ApprovedTutor{Phone: "525512345678", Name: "Ana", Notes: "referida"}
	require.NoError(t, db.Create(&entry).Error)

	h := NewAdminHandler(db)
	app := fiber.New()
	app.Put("/admin/tutors/:id", h.UpdateApproved)

	resp, err := app.Test(jsonReq("PUT", "/admin/tutors/"+entry.ID.String(), `{"notes":""}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloaded models.ApprovedTutor
	require.NoError(t, db.First(&reloaded, "id = ?", entry.ID).Error)
	assert.Empty(t, reloaded.Notes)
	// Omitted fields stay as they were.
	assert.Equal(t, "Ana", reloaded.Name)
	assert.Equal(t, "525512345678", reloaded.Phone)
}
