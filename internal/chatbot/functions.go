package chatbot

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/services/account"
	"github.com/chamba-tutorias/backend/internal/services/otp"
	"github.com/chamba-tutorias/backend/internal/utils"
)

// The function catalogue the model may invoke. Dispatch is a closed switch
// over these names; anything else is rejected at the decode boundary.
type FunctionName string

const (
	FnSearchTutors      FunctionName = "search_tutors"
	FnGetTutorProfile   FunctionName = "get_tutor_profile"
	FnCreateTutorProf   FunctionName = "create_tutor_profile"
	FnUpdateTutorProf   FunctionName = "update_tutor_profile"
	FnCreateTutoringReq FunctionName = "create_tutoring_request"
	FnSendOTP           FunctionName = "send_otp"
	FnVerifyOTP         FunctionName = "verify_otp"
)

// Catalog executes chat functions against the real services.
type Catalog struct {
	DB  *gorm.DB
	OTP *otp.Service
}

func NewCatalog(db *gorm.DB, otpSvc *otp.Service) *Catalog {
	return &Catalog{DB: db, OTP: otpSvc}
}

type searchTutorsArgs struct {
	Subject    string `json:"subject"`
	GradeLevel string `json:"grade_level"`
	MaxResults int    `json:"max_results"`
}

type profileArgs struct {
	Phone          string   `json:"phone"`
	Name           string   `json:"name"`
	Subjects       []string `json:"subjects"`
	GradeLevels    []string `json:"grade_levels"`
	Bio            string   `json:"bio"`
	Education      string   `json:"education"`
	SchedulingLink string   `json:"scheduling_link"`
}

type tutoringRequestArgs struct {
	Phone      string `json:"phone"`
	Subject    string `json:"subject"`
	GradeLevel string `json:"grade_level"`
	Topic      string `json:"topic"`
}

type otpArgs struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// Execute decodes args and dispatches to the matching operation.
func (c *Catalog) Execute(name FunctionName, rawArgs json.RawMessage) (interface{}, error) {
	switch name {
	case FnSearchTutors:
		var a searchTutorsArgs
		if err := json.Unmarshal(rawArgs, &a); err != nil {
			return nil, err
		}
		return c.SearchTutors(a.Subject, a.GradeLevel, a.MaxResults)
	case FnGetTutorProfile:
		var a profileArgs
		if err := json.Unmarshal(rawArgs, &a); err != nil {
			return nil, err
		}
		return c.getTutorProfile(a.Phone)
	case FnCreateTutorProf:
		var a profileArgs
		if err := json.Unmarshal(rawArgs, &a); err != nil {
			return nil, err
		}
		return c.createTutorProfile(a)
	case FnUpdateTutorProf:
		var a profileArgs
		if err := json.Unmarshal(rawArgs, &a); err != nil {
			return nil, err
		}
		return c.updateTutorProfile(a)
	case FnCreateTutoringReq:
		var a tutoringRequestArgs
		if err := json.Unmarshal(rawArgs, &a); err != nil {
			return nil, err
		}
		return c.createTutoringRequest(a)
	case FnSendOTP:
		var a otpArgs
		if err := json.Unmarshal(rawArgs, &a); err != nil {
			return nil, err
		}
		if err := c.OTP.SendCode(a.Phone); err != nil {
			return map[string]interface{}{"success": false, "error": err.Error()}, nil
		}
		return map[string]interface{}{"success": true, "message": "Código enviado"}, nil
	case FnVerifyOTP:
		var a otpArgs
		if err := json.Unmarshal(rawArgs, &a); err != nil {
			return nil, err
		}
		user, err := c.OTP.Verify(a.Phone, a.Code)
		if err != nil {
			return map[string]interface{}{"success": false, "error": err.Error()}, nil
		}
		return map[string]interface{}{"success": true, "user": map[string]interface{}{
			"id": user.ID, "phone": user.Phone, "name": user.Name, "role": user.Role,
		}}, nil
	default:
		return nil, fmt.Errorf("unknown function %q", name)
	}
}

// TutorResult is the shape handed back to the model and the rule engine.
type TutorResult struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Subjects          []string `json:"subjects"`
	GradeLevels       []string `json:"grade_levels"`
	Rating            float64  `json:"rating"`
	Bio               string   `json:"bio,omitempty"`
	Education         string   `json:"education,omitempty"`
	SchedulingLink    string   `json:"scheduling_link,omitempty"`
	CompletedSessions int      `json:"completed_sessions"`
}

type SearchResult struct {
	Success bool          `json:"success"`
	Tutors  []TutorResult `json:"tutors"`
	Message string        `json:"message,omitempty"`
}

// SearchTutors finds active tutors for a subject, best rated first.
func (c *Catalog) SearchTutors(subject, gradeLevel string, maxResults int) (*SearchResult, error) {
	subj := models.Subject(subject)
	if !subj.Valid() {
		subj = models.SubjectOtro
	}
	if maxResults <= 0 {
		maxResults = 3
	}

	var profiles []models.TutorProfile
	err := c.DB.Preload("User").
		Where("is_active = ?", true).
		Order("rating DESC").
		Order("completed_sessions DESC").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}

	results := make([]TutorResult, 0, maxResults)
	for i := range profiles {
		p := &profiles[i]
		if !p.HasSubject(subj) {
			continue
		}
		if gradeLevel != "" && !p.HasGradeLevel(models.GradeLevel(gradeLevel)) {
			continue
		}

		name := "Tutor"
		if p.User != nil && p.User.Name != "" {
			name = p.User.Name
		}
		subjects := make([]string, 0, len(p.Subjects))
		for _, s := range p.Subjects {
			subjects = append(subjects, s.Label())
		}
		levels := make([]string, 0, len(p.GradeLevels))
		for _, g := range p.GradeLevels {
			levels = append(levels, string(g))
		}

		results = append(results, TutorResult{
			ID:                p.ID.String(),
			Name:              name,
			Subjects:          subjects,
			GradeLevels:       levels,
			Rating:            p.Rating,
			Bio:               p.Bio,
			Education:         p.Education,
			SchedulingLink:    p.SchedulingLink,
			CompletedSessions: p.CompletedSessions,
		})
		if len(results) == maxResults {
			break
		}
	}

	if len(results) == 0 {
		return &SearchResult{
			Success: true,
			Tutors:  []TutorResult{},
			Message: "No hay tutores disponibles para " + subj.Label() + " en este momento",
		}, nil
	}
	return &SearchResult{Success: true, Tutors: results}, nil
}

func (c *Catalog) findUserByPhone(phone string) (*models.User, error) {
	formatted := utils.FormatPhone(phone)
	clean := utils.CleanPhone(phone)

	var user models.User
	err := c.DB.Preload("TutorProfile").
		Where("phone = ? OR phone = ?", formatted, clean).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Catalog) getTutorProfile(phone string) (interface{}, error) {
	user, err := c.findUserByPhone(phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]interface{}{"success": false, "error": "Usuario no encontrado"}, nil
	}
	if err != nil {
		return nil, err
	}
	if user.TutorProfile == nil {
		return map[string]interface{}{"success": false, "error": "Este usuario no tiene perfil de tutor"}, nil
	}
	return map[string]interface{}{"success": true, "profile": user.TutorProfile}, nil
}

func parseSubjects(in []string) (datatypes.JSONSlice[models.Subject], error) {
	out := make([]models.Subject, 0, len(in))
	for _, s := range in {
		subj := models.Subject(s)
		if !subj.Valid() {
			return nil, fmt.Errorf("materia inválida: %s", s)
		}
		out = append(out, subj)
	}
	return datatypes.NewJSONSlice(out), nil
}

func parseGradeLevels(in []string) (datatypes.JSONSlice[models.GradeLevel], error) {
	out := make([]models.GradeLevel, 0, len(in))
	for _, g := range in {
		level := models.GradeLevel(g)
		if !level.Valid() {
			return nil, fmt.Errorf("nivel académico inválido: %s", g)
		}
		out = append(out, level)
	}
	return datatypes.NewJSONSlice(out), nil
}

// createTutorProfile promotes an approved user to tutor and creates the
// profile; the whitelist gate applies exactly as it does over HTTP.
func (c *Catalog) createTutorProfile(a profileArgs) (interface{}, error) {
	if a.Phone == "" || len(a.Subjects) == 0 {
		return map[string]interface{}{"success": false, "error": "Teléfono y al menos una materia son requeridos"}, nil
	}

	user, err := c.findUserByPhone(a.Phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]interface{}{"success": false, "error": "Usuario no encontrado; verifica tu número primero"}, nil
	}
	if err != nil {
		return nil, err
	}
	if user.TutorProfile != nil {
		return map[string]interface{}{"success": false, "error": "Este usuario ya tiene un perfil de tutor"}, nil
	}

	subjects, err := parseSubjects(a.Subjects)
	if err != nil {
		return map[string]interface{}{"success": false, "error": err.Error()}, nil
	}
	levels, err := parseGradeLevels(a.GradeLevels)
	if err != nil {
		return map[string]interface{}{"success": false, "error": err.Error()}, nil
	}

	profile := models.TutorProfile{
		UserID:         user.ID,
		Subjects:       subjects,
		GradeLevels:    levels,
		Bio:            a.Bio,
		Education:      a.Education,
		SchedulingLink: a.SchedulingLink,
		IsActive:       true,
	}
	// Promotion and profile creation commit together or not at all.
	err = c.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := account.NewService(tx).ChangeRole(user.ID, models.RoleTutor); err != nil {
			return err
		}
		return tx.Create(&profile).Error
	})
	if err != nil {
		if errors.Is(err, account.ErrNotApproved) || errors.Is(err, account.ErrPhoneRequired) {
			return map[string]interface{}{"success": false, "error": err.Error(), "code": "NOT_APPROVED"}, nil
		}
		return nil, err
	}
	if a.Name != "" {
		c.DB.Model(user).Update("name", a.Name)
	}

	return map[string]interface{}{"success": true, "profile": profile}, nil
}

func (c *Catalog) updateTutorProfile(a profileArgs) (interface{}, error) {
	user, err := c.findUserByPhone(a.Phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]interface{}{"success": false, "error": "Usuario no encontrado"}, nil
	}
	if err != nil {
		return nil, err
	}
	if user.TutorProfile == nil {
		return map[string]interface{}{"success": false, "error": "Este usuario no tiene perfil de tutor"}, nil
	}

	profile := user.TutorProfile
	if len(a.Subjects) > 0 {
		subjects, err := parseSubjects(a.Subjects)
		if err != nil {
			return map[string]interface{}{"success": false, "error": err.Error()}, nil
		}
		profile.Subjects = subjects
	}
	if len(a.GradeLevels) > 0 {
		levels, err := parseGradeLevels(a.GradeLevels)
		if err != nil {
			return map[string]interface{}{"success": false, "error": err.Error()}, nil
		}
		profile.GradeLevels = levels
	}
	if a.Bio != "" {
		profile.Bio = a.Bio
	}
	if a.Education != "" {
		profile.Education = a.Education
	}
	if a.SchedulingLink != "" {
		profile.SchedulingLink = a.SchedulingLink
	}

	if err := c.DB.Save(profile).Error; err != nil {
		return nil, err
	}
	if a.Name != "" {
		c.DB.Model(user).Update("name", a.Name)
	}
	return map[string]interface{}{"success": true, "profile": profile}, nil
}

func (c *Catalog) createTutoringRequest(a tutoringRequestArgs) (interface{}, error) {
	subj := models.Subject(a.Subject)
	if !subj.Valid() {
		return map[string]interface{}{"success": false, "error": "Materia inválida"}, nil
	}

	user, err := c.findUserByPhone(a.Phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]interface{}{"success": false, "error": "Usuario no encontrado; verifica tu número primero"}, nil
	}
	if err != nil {
		return nil, err
	}

	job := models.JobRequest{
		ClientID: user.ID,
		Subject:  subj,
		Topic:    a.Topic,
		Status:   models.RequestStatusBorrador,
	}
	if a.GradeLevel != "" {
		level := models.GradeLevel(a.GradeLevel)
		if !level.Valid() {
			return map[string]interface{}{"success": false, "error": "Nivel académico inválido"}, nil
		}
		job.GradeLevel = &level
	}

	if err := c.DB.Create(&job).Error; err != nil {
		return nil, err
	}
	return map[string]interface{}{"success": true, "request": job}, nil
}
