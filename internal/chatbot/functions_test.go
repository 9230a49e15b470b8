package chatbot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/services/otp"
	"github.com/chamba-tutorias/backend/internal/testutil"
)

func newTestCatalog(t *testing.T) *Catalog {
	db := testutil.OpenDB(t)
	return NewCatalog(db, otp.NewService(db, &nopSender{}))
}

type nopSender struct{}

func (*nopSender) Send(to, message string) error { return nil }

func TestSearchTutorsOrdersByRating(t *testing.T) {
	c := newTestCatalog(t)
	seedTutor(t, c.DB, "Ana", 4.2, models.SubjectFisica)
	seedTutor(t, c.DB, "Pedro", 5.0, models.SubjectFisica)
	seedTutor(t, c.DB, "Marta", 4.8, models.SubjectFisica)
	seedTutor(t, c.DB, "Julia", 5.0, models.SubjectIngles)

	res, err := c.SearchTutors(string(models.SubjectFisica), "", 2)
	require.NoError(t, err)
	require.Len(t, res.Tutors, 2)
	assert.Equal(t, "Pedro", res.Tutors[0].Name)
	assert.Equal(t, "Marta", res.Tutors[1].Name)
}

func TestSearchTutorsEmptyPool(t *testing.T) {
	c := newTestCatalog(t)

	res, err := c.SearchTutors(string(models.SubjectQuimica), "", 3)
	require.NoError(t, err)
	assert.Empty(t, res.Tutors)
	assert.Contains(t, res.Message, "No hay tutores")
}

func TestExecuteRejectsUnknownFunction(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.Execute("drop_tables", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestCreateTutoringRequestNeedsVerifiedUser(t *testing.T) {
	c := newTestCatalog(t)

	out, err := c.Execute(FnCreateTutoringReq, json.RawMessage(
		`{"phone":"+525512345678","subject":"MATEMATICAS","topic":"derivadas"}`))
	require.NoError(t, err)
	m := out.(map[string]interface{})
	assert.Equal(t, false, m["success"])

	require.NoError(t, c.DB.Create(&models.User{Phone: "+525512345678"}).Error)

	out, err = c.Execute(FnCreateTutoringReq, json.RawMessage(
		`{"phone":"+525512345678","subject":"MATEMATICAS","topic":"derivadas"}`))
	require.NoError(t, err)
	m = out.(map[string]interface{})
	assert.Equal(t, true, m["success"])

	var job models.JobRequest
	require.NoError(t, c.DB.First(&job).Error)
	assert.Equal(t, models.SubjectMatematicas, job.Subject)
	assert.Equal(t, models.RequestStatusBorrador, job.Status)
}

func TestCreateTutorProfileRunsWhitelistGate(t *testing.T) {
	c := newTestCatalog(t)
	require.NoError(t, c.DB.Create(&models.User{Phone: "+525512345678"}).Error)

	args := json.RawMessage(`{"phone":"+525512345678","name":"Ana","subjects":["MATEMATICAS"]}`)

	out, err := c.Execute(FnCreateTutorProf, args)
	require.NoError(t, err)
	m := out.(map[string]interface{})
	assert.Equal(t, false, m["success"])
	assert.Equal(t, "NOT_APPROVED", m["code"])

	// A refused promotion leaves neither a role change nor a profile.
	var refused models.User
	require.NoError(t, c.DB.First(&refused, "phone = ?", "+525512345678").Error)
	assert.Equal(t, models.RoleEstudiante, refused.Role)
	var profiles int64
	c.DB.Model(&models.TutorProfile{}).Count(&profiles)
	assert.Zero(t, profiles)

	require.NoError(t, c.DB.Create(&models.ApprovedTutor{Phone: "525512345678"}).Error)

	out, err = c.Execute(FnCreateTutorProf, args)
	require.NoError(t, err)
	m = out.(map[string]interface{})
	assert.Equal(t, true, m["success"])

	var user models.User
	require.NoError(t, c.DB.Preload("TutorProfile").First(&user, "phone = ?", "+525512345678").Error)
	assert.Equal(t, models.RoleTutor, user.Role)
	require.NotNil(t, user.TutorProfile)
	assert.True(t, user.TutorProfile.HasSubject(models.SubjectMatematicas))
}
