package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/utils"
)

// AdminHandler serves the key-guarded admin panel: the tutor whitelist and
// direct tutor profile management.
type AdminHandler struct {
	DB *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{DB: db}
}

// --- whitelist (approved tutors) ---

// ListApproved returns every whitelist entry.
func (h *AdminHandler) ListApproved(c *fiber.Ctx) error {
	var entries []models.ApprovedTutor
	if err := h.DB.Order("created_at DESC").Find(&entries).Error; err != nil {
		return serverError(c, "No se pudo cargar la lista")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
	})
}

type approvedTutorRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

// CreateApproved whitelists a phone number for tutor promotion.
func (h *AdminHandler) CreateApproved(c *fiber.Ctx) error {
	var req approvedTutorRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cuerpo de la petición inválido")
	}

	clean := utils.CleanPhone(req.Phone)
	if !utils.ValidPhoneLength(clean) {
		return badRequest(c, "Teléfono inválido")
	}

	entry := models.ApprovedTutor{
		Phone: clean,
		Name:  strings.TrimSpace(req.Name),
		Notes: req.Notes,
	}
	if err := h.DB.Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "Este teléfono ya está en la lista",
			})
		}
		return serverError(c, "No se pudo agregar a la lista")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Tutor aprobado",
		"data":    entry,
	})
}

type updateApprovedRequest struct {
	Phone *string `json:"phone"`
	Name  *string `json:"name"`
	Notes *string `json:"notes"`
}

// UpdateApproved edits a whitelist entry. Pointer fields so sending an
// empty string clears a value while omitting it leaves it alone.
func (h *AdminHandler) UpdateApproved(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "ID inválido")
	}

	var req updateApprovedRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cuerpo de la petición inválido")
	}

	var entry models.ApprovedTutor
	if err := h.DB.First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Entrada no encontrada")
		}
		return serverError(c, "No se pudo cargar la entrada")
	}

	if req.Phone != nil {
		clean := utils.CleanPhone(*req.Phone)
		if !utils.ValidPhoneLength(clean) {
			return badRequest(c, "Teléfono inválido")
		}
		entry.Phone = clean
	}
	if req.Name != nil {
		entry.Name = strings.TrimSpace(*req.Name)
	}
	if req.Notes != nil {
		entry.Notes = *req.Notes
	}

	if err := h.DB.Save(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "Este teléfono ya está en la lista",
			})
		}
		return serverError(c, "No se pudo guardar la entrada")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Entrada actualizada",
		"data":    entry,
	})
}

// DeleteApproved removes a whitelist entry.
func (h *AdminHandler) DeleteApproved(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "ID inválido")
	}

	res := h.DB.Delete(&models.ApprovedTutor{}, "id = ?", id)
	if res.Error != nil {
		return serverError(c, "No se pudo eliminar la entrada")
	}
	if res.RowsAffected == 0 {
		return notFound(c, "Entrada no encontrada")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Entrada eliminada",
	})
}

// --- tutor profiles ---

// ListProfiles returns every tutor profile with its user.
func (h *AdminHandler) ListProfiles(c *fiber.Ctx) error {
	var profiles []models.TutorProfile
	if err := h.DB.Preload("User").Order("created_at DESC").Find(&profiles).Error; err != nil {
		return serverError(c, "No se pudieron cargar los perfiles")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    profiles,
	})
}

type adminProfileRequest struct {
	Phone          string   `json:"phone"`
	Name           string   `json:"name"`
	Subjects       []string `json:"subjects"`
	GradeLevels    []string `json:"grade_levels"`
	Bio            *string  `json:"bio"`
	Education      *string  `json:"education"`
	Experience     *string  `json:"experience"`
	SchedulingLink *string  `json:"scheduling_link"`
	IsActive       *bool    `json:"is_active"`
	IsVerified     *bool    `json:"is_verified"`
}

// CreateProfile provisions a tutor directly: the user is created (or
// repurposed) from the phone, whitelisted, promoted and given a profile.
func (h *AdminHandler) CreateProfile(c *fiber.Ctx) error {
	var req adminProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cuerpo de la petición inválido")
	}

	clean := utils.CleanPhone(req.Phone)
	if !utils.ValidPhoneLength(clean) {
		return badRequest(c, "Teléfono inválido")
	}
	if len(req.Subjects) == 0 {
		return badRequest(c, "Se requiere al menos una materia")
	}

	upsert := upsertProfileRequest{Subjects: req.Subjects, GradeLevels: req.GradeLevels}
	subjects, levels, msg := parseEnumSlices(&upsert)
	if msg != "" {
		return badRequest(c, msg)
	}

	formatted := utils.FormatPhone(clean)
	var profile models.TutorProfile

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("phone = ? OR phone = ?", formatted, clean).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{
				Phone: formatted,
				Name:  strings.TrimSpace(req.Name),
				Role:  models.RoleTutor,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		} else {
			updates := map[string]interface{}{"role": models.RoleTutor}
			if req.Name != "" {
				updates["name"] = strings.TrimSpace(req.Name)
			}
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}

		var existing models.TutorProfile
		if err := tx.First(&existing, "user_id = ?", user.ID).Error; err == nil {
			return errors.New("este usuario ya tiene perfil de tutor")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Backfill the whitelist so a later self-service role switch works.
		var approved models.ApprovedTutor
		err = tx.Where("phone = ?", clean).First(&approved).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			approved = models.ApprovedTutor{
				Phone: clean,
				Name:  strings.TrimSpace(req.Name),
				Notes: "alta directa desde el panel",
			}
			if err := tx.Create(&approved).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		profile = models.TutorProfile{
			UserID:      user.ID,
			Subjects:    subjects,
			GradeLevels: levels,
			IsActive:    true,
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
		if req.IsVerified != nil {
			profile.IsVerified = *req.IsVerified
		}
		return tx.Create(&profile).Error
	})
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Perfil creado",
		"data":    profile,
	})
}

// UpdateProfile edits any tutor profile by id.
func (h *AdminHandler) UpdateProfile(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "ID inválido")
	}

	var req adminProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cuerpo de la petición inválido")
	}

	var profile models.TutorProfile
	if err := h.DB.First(&profile, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Perfil no encontrado")
		}
		return serverError(c, "No se pudo cargar el perfil")
	}

	if len(req.Subjects) > 0 || len(req.GradeLevels) > 0 {
		upsert := upsertProfileRequest{Subjects: req.Subjects, GradeLevels: req.GradeLevels}
		subjects, levels, msg := parseEnumSlices(&upsert)
		if msg != "" {
			return badRequest(c, msg)
		}
		if len(req.Subjects) > 0 {
			profile.Subjects = subjects
		}
		if len(req.GradeLevels) > 0 {
			profile.GradeLevels = levels
		}
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
	}
	if req.IsVerified != nil {
		profile.IsVerified = *req.IsVerified
	}

	if err := h.DB.Save(&profile).Error; err != nil {
		return serverError(c, "No se pudo guardar el perfil")
	}
	if req.Name != "" {
		h.DB.Model(&models.User{}).Where("id = ?", profile.UserID).
			Update("name", strings.TrimSpace(req.Name))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Perfil actualizado",
		"data":    profile,
	})
}

// DeleteProfile removes a tutor profile and demotes the user to student.
func (h *AdminHandler) DeleteProfile(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "ID inválido")
	}

	var profile models.TutorProfile
	if err := h.DB.First(&profile, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Perfil no encontrado")
		}
		return serverError(c, "No se pudo cargar el perfil")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&profile).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", profile.UserID).
			Update("role", models.RoleEstudiante).Error
	})
	if err != nil {
		return serverError(c, "No se pudo eliminar el perfil")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Perfil eliminado",
	})
}
