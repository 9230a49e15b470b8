package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/services/account"
)

type TutorProfileHandler struct {
	DB            *gorm.DB
	JWTSecret     string
	JWTExpiresMin int
}

func NewTutorProfileHandler(db *gorm.DB, jwtSecret string, jwtExpiresMin int) *TutorProfileHandler {
	return &TutorProfileHandler{DB: db, JWTSecret: jwtSecret, JWTExpiresMin: jwtExpiresMin}
}

// Get returns the caller's own tutor profile.
func (h *TutorProfileHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var profile models.TutorProfile
	if err := h.DB.First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "No tienes perfil de tutor")
		}
		return serverError(c, "No se pudo cargar el perfil")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    profile,
	})
}

type upsertProfileRequest struct {
	Subjects       []string `json:"subjects"`
	GradeLevels    []string `json:"grade_levels"`
	Bio            *string  `json:"bio"`
	Education      *string  `json:"education"`
	Experience     *string  `json:"experience"`
	SchedulingLink *string  `json:"scheduling_link"`
	IsActive       *bool    `json:"is_active"`
}

func parseEnumSlices(req *upsertProfileRequest) (datatypes.JSONSlice[models.Subject], datatypes.JSONSlice[models.GradeLevel], string) {
	subjects := make([]models.Subject, 0, len(req.Subjects))
	for _, s := range req.Subjects {
		subj := models.Subject(strings.ToUpper(strings.TrimSpace(s)))
		if !subj.Valid() {
			return nil, nil, "Materia inválida: " + s
		}
		subjects = append(subjects, subj)
	}
	levels := make([]models.GradeLevel, 0, len(req.GradeLevels))
	for _, g := range req.GradeLevels {
		level := models.GradeLevel(strings.ToUpper(strings.TrimSpace(g)))
		if !level.Valid() {
			return nil, nil, "Nivel académico inválido: " + g
		}
		levels = append(levels, level)
	}
	return datatypes.NewJSONSlice(subjects), datatypes.NewJSONSlice(levels), ""
}

// Upsert creates or updates the caller's tutor profile. Creating one
// promotes the user to tutor, which runs the whitelist gate.
func (h *TutorProfileHandler) Upsert(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req upsertProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cuerpo de la petición inválido")
	}

	var existing models.TutorProfile
	err = h.DB.First(&existing, "user_id = ?", userID).Error
	creating := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !creating {
		return serverError(c, "No se pudo cargar el perfil")
	}

	if creating && len(req.Subjects) == 0 {
		return badRequest(c, "Se requiere al menos una materia")
	}
	subjects, levels, msg := parseEnumSlices(&req)
	if msg != "" {
		return badRequest(c, msg)
	}

	profile := existing
	profile.UserID = userID
	if len(req.Subjects) > 0 {
		profile.Subjects = subjects
	}
	if len(req.GradeLevels) > 0 {
		profile.GradeLevels = levels
	}
	if req.Bio != nil {
		profile.Bio = *req.Bio
	}
	if req.Education != nil {
		profile.Education = *req.Education
	}
	if req.Experience != nil {
		profile.Experience = *req.Experience
	}
	if req.SchedulingLink != nil {
		profile.SchedulingLink = *req.SchedulingLink
	}
	if req.IsActive != nil {
		profile.IsActive = *req.IsActive
	} else if creating {
		profile.IsActive = true
	}

	if creating {
		// Promotion and profile creation stand or fall together: a refused
		// promotion must not leave a profile, a failed insert must not
		// leave a promoted user.
		var promoted *models.User
		err = h.DB.Transaction(func(tx *gorm.DB) error {
			user, err := account.NewService(tx).ChangeRole(userID, models.RoleTutor)
			if err != nil {
				return err
			}
			promoted = user
			return tx.Create(&profile).Error
		})
		if err != nil {
			switch {
			case errors.Is(err, account.ErrNotApproved), errors.Is(err, account.ErrPhoneRequired):
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"success": false,
					"message": err.Error(),
					"code":    "NOT_APPROVED",
				})
			case errors.Is(err, account.ErrUserNotFound):
				return fiber.ErrUnauthorized
			default:
				return serverError(c, "No se pudo crear el perfil")
			}
		}
		if _, err := issueSession(c, h.JWTSecret, h.JWTExpiresMin, promoted); err != nil {
			return serverError(c, "No se pudo renovar la sesión")
		}
	} else if err := h.DB.Save(&profile).Error; err != nil {
		return serverError(c, "No se pudo guardar el perfil")
	}

	status := fiber.StatusOK
	message := "Perfil actualizado"
	if creating {
		status = fiber.StatusCreated
		message = "Perfil creado"
	}
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    profile,
	})
}

// Delete removes the caller's tutor profile and reverts them to student.
func (h *TutorProfileHandler) Delete(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var profile models.TutorProfile
	if err := h.DB.First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "No tienes perfil de tutor")
		}
		return serverError(c, "No se pudo cargar el perfil")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&profile).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("role", models.RoleEstudiante).Error
	})
	if err != nil {
		return serverError(c, "No se pudo eliminar el perfil")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err == nil {
		if _, err := issueSession(c, h.JWTSecret, h.JWTExpiresMin, &user); err != nil {
			return serverError(c, "No se pudo renovar la sesión")
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Perfil eliminado",
	})
}
