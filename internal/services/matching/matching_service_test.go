package matching

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/testutil"
)

type recorderSender struct {
	sent []string
}

func (r *recorderSender) Send(to, message string) error {
	r.sent = append(r.sent, to+": "+message)
	return nil
}

func newTestService(t *testing.T) (*Service, *recorderSender) {
	rec := &recorderSender{}
	return NewService(testutil.OpenDB(t), nil, rec), rec
}

func seedStudent(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := models.User{Name: name, Phone: "+5255" + uuid.NewString()[:8], Role: models.RoleEstudiante}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func seedTutor(t *testing.T, db *gorm.DB, name string, active bool, subjects []models.Subject, levels []models.GradeLevel) *models.User {
	t.Helper()
	u := models.User{Name: name, Phone: "+5255" + uuid.NewString()[:8], Role: models.RoleTutor}
	require.NoError(t, db.Create(&u).Error)
	p := models.TutorProfile{
		UserID:      u.ID,
		Subjects:    datatypes.NewJSONSlice(subjects),
		GradeLevels: datatypes.NewJSONSlice(levels),
		IsActive:    active,
	}
	require.NoError(t, db.Create(&p).Error)
	return &u
}

func seedRequest(t *testing.T, db *gorm.DB, client *models.User, subject models.Subject, level *models.GradeLevel) *models.JobRequest {
	t.Helper()
	job := models.JobRequest{
		ClientID:   client.ID,
		Subject:    subject,
		GradeLevel: level,
		Status:     models.RequestStatusBorrador,
	}
	require.NoError(t, db.Create(&job).Error)
	return &job
}

func candidateIDs(page *CandidatePage) map[uuid.UUID]bool {
	out := map[uuid.UUID]bool{}
	for _, c := range page.Providers {
		out[c.ID] = true
	}
	return out
}

func TestCandidatesFiltersSubjectGradeAndActivity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	student := seedStudent(t, svc.DB, "Luis")
	math := seedTutor(t, svc.DB, "Ana", true,
		[]models.Subject{models.SubjectMatematicas},
		[]models.GradeLevel{models.GradeSecundaria})
	seedTutor(t, svc.DB, "Pedro", true,
		[]models.Subject{models.SubjectIngles},
		[]models.GradeLevel{models.GradeSecundaria})
	seedTutor(t, svc.DB, "Marta", false,
		[]models.Subject{models.SubjectMatematicas},
		[]models.GradeLevel{models.GradeSecundaria})
	seedTutor(t, svc.DB, "Julia", true,
		[]models.Subject{models.SubjectMatematicas},
		[]models.GradeLevel{models.GradeUniversidad})

	level := models.GradeSecundaria
	job := seedRequest(t, svc.DB, student, models.SubjectMatematicas, &level)

	page, err := svc.Candidates(ctx, student.ID, job.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.False(t, page.HasMore)

	ids := candidateIDs(page)
	assert.True(t, ids[math.ID])
}

func TestCandidatesOnlyForOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	student := seedStudent(t, svc.DB, "Luis")
	other := seedStudent(t, svc.DB, "Eva")
	job := seedRequest(t, svc.DB, student, models.SubjectFisica, nil)

	_, err := svc.Candidates(ctx, other.ID, job.ID, 0, 3)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.Candidates(ctx, student.ID, uuid.New(), 0, 3)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestCandidatesExcludesOfferedTutorsAndPaginates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	student := seedStudent(t, svc.DB, "Luis")
	var tutors []*models.User
	for _, name := range []string{"Ana", "Pedro", "Marta", "Julia", "Omar"} {
		tutors = append(tutors, seedTutor(t, svc.DB, name, true,
			[]models.Subject{models.SubjectQuimica}, nil))
	}
	job := seedRequest(t, svc.DB, student, models.SubjectQuimica, nil)

	// Default window is 3 of the 5 matches.
	page, err := svc.Candidates(ctx, student.ID, job.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, page.Providers, 3)
	assert.Equal(t, 5, page.Total)
	assert.True(t, page.HasMore)

	page, err = svc.Candidates(ctx, student.ID, job.ID, 3, 3)
	require.NoError(t, err)
	assert.Len(t, page.Providers, 2)
	assert.False(t, page.HasMore)

	// A tutor holding an offer drops out of the pool.
	_, err = svc.CreateOffer(ctx, student.ID, job.ID, tutors[0].ID)
	require.NoError(t, err)

	page, err = svc.Candidates(ctx, student.ID, job.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.False(t, candidateIDs(page)[tutors[0].ID])
}

func TestCandidatesRankByDistanceWhenLocated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	student := seedStudent(t, svc.DB, "Luis")
	for _, name := range []string{"Ana", "Pedro", "Marta"} {
		seedTutor(t, svc.DB, name, true, []models.Subject{models.SubjectFisica}, nil)
	}
	lat, lng := 13.69, -89.19
	job := models.JobRequest{
		ClientID: student.ID,
		Subject:  models.SubjectFisica,
		Lat:      &lat,
		Lng:      &lng,
		Status:   models.RequestStatusBorrador,
	}
	require.NoError(t, svc.DB.Create(&job).Error)

	page, err := svc.Candidates(ctx, student.ID, job.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Providers, 3)

	prev := 0.0
	for _, c := range page.Providers {
		require.NotNil(t, c.Distance)
		assert.GreaterOrEqual(t, *c.Distance, prev)
		prev = *c.Distance
	}
}

func TestCreateOfferMarksRequestPending(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	student := seedStudent(t, svc.DB, "Luis")
	tutor := seedTutor(t, svc.DB, "Ana", true, []models.Subject{models.SubjectIngles}, nil)
	job := seedRequest(t, svc.DB, student, models.SubjectIngles, nil)

	offer, err := svc.CreateOffer(ctx, student.ID, job.ID, tutor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusEnviado, offer.Status)

	var reloaded models.JobRequest
	require.NoError(t, svc.DB.First(&reloaded, "id = ?", job.ID).Error)
	assert.Equal(t, models.RequestStatusPendiente, reloaded.Status)

	require.Len(t, rec.sent, 1)
	assert.Contains(t, rec.sent[0], tutor.Phone)

	_, err = svc.CreateOffer(ctx, student.ID, job.ID, tutor.ID)
	assert.ErrorIs(t, err, ErrDuplicateOffer)
}

func TestCreateOfferGuards(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	student := seedStudent(t, svc.DB, "Luis")
	other := seedStudent(t, svc.DB, "Eva")
	inactive := seedTutor(t, svc.DB, "Marta", false, []models.Subject{models.SubjectIngles}, nil)
	job := seedRequest(t, svc.DB, student, models.SubjectIngles, nil)

	_, err := svc.CreateOffer(ctx, other.ID, job.ID, inactive.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.CreateOffer(ctx, student.ID, job.ID, inactive.ID)
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	// A plain user without a profile is no candidate either.
	_, err = svc.CreateOffer(ctx, student.ID, job.ID, other.ID)
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	require.NoError(t, svc.DB.Model(&models.JobRequest{}).
		Where("id = ?", job.ID).
		Update("status", models.RequestStatusCancelado).Error)
	tutor := seedTutor(t, svc.DB, "Ana", true, []models.Subject{models.SubjectIngles}, nil)
	_, err = svc.CreateOffer(ctx, student.ID, job.ID, tutor.ID)
	assert.ErrorIs(t, err, ErrRequestClosed)
}

func TestAcceptCascadesOverSiblings(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	student := seedStudent(t, svc.DB, "Luis")
	first := seedTutor(t, svc.DB, "Ana", true, []models.Subject{models.SubjectCalculo}, nil)
	second := seedTutor(t, svc.DB, "Pedro", true, []models.Subject{models.SubjectCalculo}, nil)
	job := seedRequest(t, svc.DB, student, models.SubjectCalculo, nil)

	offer1, err := svc.CreateOffer(ctx, student.ID, job.ID, first.ID)
	require.NoError(t, err)
	offer2, err := svc.CreateOffer(ctx, student.ID, job.ID, second.ID)
	require.NoError(t, err)

	_, err = svc.Respond(ctx, first.ID, offer1.ID, true)
	require.NoError(t, err)

	var reloaded1, reloaded2 models.JobOffer
	require.NoError(t, svc.DB.First(&reloaded1, "id = ?", offer1.ID).Error)
	require.NoError(t, svc.DB.First(&reloaded2, "id = ?", offer2.ID).Error)
	assert.Equal(t, models.OfferStatusAceptado, reloaded1.Status)
	assert.NotNil(t, reloaded1.RespondedAt)
	assert.Equal(t, models.OfferStatusRechazado, reloaded2.Status)
	assert.NotNil(t, reloaded2.RespondedAt)

	var reloadedJob models.JobRequest
	require.NoError(t, svc.DB.First(&reloadedJob, "id = ?", job.ID).Error)
	assert.Equal(t, models.RequestStatusConfirmado, reloadedJob.Status)

	// The student hears about the confirmation.
	require.NotEmpty(t, rec.sent)
	assert.Contains(t, rec.sent[len(rec.sent)-1], student.Phone)

	// Cascaded rejections cannot be answered afterwards.
	_, err = svc.Respond(ctx, second.ID, offer2.ID, true)
	assert.ErrorIs(t, err, ErrAlreadyResponded)
}

func TestRejectingLastOfferReopensRequest(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	student := seedStudent(t, svc.DB, "Luis")
	first := seedTutor(t, svc.DB, "Ana", true, []models.Subject{models.SubjectHistoria}, nil)
	second := seedTutor(t, svc.DB, "Pedro", true, []models.Subject{models.SubjectHistoria}, nil)
	job := seedRequest(t, svc.DB, student, models.SubjectHistoria, nil)

	offer1, err := svc.CreateOffer(ctx, student.ID, job.ID, first.ID)
	require.NoError(t, err)
	offer2, err := svc.CreateOffer(ctx, student.ID, job.ID, second.ID)
	require.NoError(t, err)

	_, err = svc.Respond(ctx, first.ID, offer1.ID, false)
	require.NoError(t, err)

	// One offer still pending, so the request stays PENDIENTE.
	var reloadedJob models.JobRequest
	require.NoError(t, svc.DB.First(&reloadedJob, "id = ?", job.ID).Error)
	assert.Equal(t, models.RequestStatusPendiente, reloadedJob.Status)

	smsCount := len(rec.sent)
	_, err = svc.Respond(ctx, second.ID, offer2.ID, false)
	require.NoError(t, err)

	require.NoError(t, svc.DB.First(&reloadedJob, "id = ?", job.ID).Error)
	assert.Equal(t, models.RequestStatusRechazado, reloadedJob.Status)
	assert.True(t, reloadedJob.Offerable())

	// Only the final rejection notifies the student.
	assert.Len(t, rec.sent, smsCount+1)
	assert.Contains(t, rec.sent[len(rec.sent)-1], student.Phone)
}

func TestRespondGuards(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	student := seedStudent(t, svc.DB, "Luis")
	tutor := seedTutor(t, svc.DB, "Ana", true, []models.Subject{models.SubjectBiologia}, nil)
	stranger := seedTutor(t, svc.DB, "Pedro", true, []models.Subject{models.SubjectBiologia}, nil)
	job := seedRequest(t, svc.DB, student, models.SubjectBiologia, nil)

	offer, err := svc.CreateOffer(ctx, student.ID, job.ID, tutor.ID)
	require.NoError(t, err)

	_, err = svc.Respond(ctx, stranger.ID, offer.ID, true)
	assert.ErrorIs(t, err, ErrNotAssignee)

	_, err = svc.Respond(ctx, tutor.ID, uuid.New(), true)
	assert.ErrorIs(t, err, ErrOfferNotFound)

	_, err = svc.Respond(ctx, tutor.ID, offer.ID, true)
	require.NoError(t, err)
	_, err = svc.Respond(ctx, tutor.ID, offer.ID, false)
	assert.ErrorIs(t, err, ErrAlreadyResponded)
}
