package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/services/account"
	"github.com/chamba-tutorias/backend/internal/utils"
)

type UserHandler struct {
	DB            *gorm.DB
	Account       *account.Service
	JWTSecret     string
	JWTExpiresMin int
}

func NewUserHandler(db *gorm.DB, accountSvc *account.Service, jwtSecret string, jwtExpiresMin int) *UserHandler {
	return &UserHandler{DB: db, Account: accountSvc, JWTSecret: jwtSecret, JWTExpiresMin: jwtExpiresMin}
}

// Me returns the authenticated user with their tutor profile, if any.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.Preload("TutorProfile").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrUnauthorized
		}
		return serverError(c, "No se pudo cargar el usuario")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    user,
	})
}

type updateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// UpdateUser edits the caller's own name, email or phone. A phone change
// drops the verification stamp until the next OTP login.
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cuerpo de la petición inválido")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		updates["email"] = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		if !utils.ValidPhoneLength(*req.Phone) {
			return badRequest(c, "Teléfono inválido")
		}
		updates["phone"] = utils.FormatPhone(*req.Phone)
		updates["phone_verified_at"] = nil
	}
	if len(updates) == 0 {
		return badRequest(c, "Nada que actualizar")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		return fiber.ErrUnauthorized
	}
	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": "Ese teléfono ya está registrado",
			})
		}
		return serverError(c, "No se pudo actualizar el usuario")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Usuario actualizado",
		"data":    user,
	})
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole switches the caller between student and tutor. Tutor promotion
// is gated by the approved-phone whitelist.
func (h *UserHandler) UpdateRole(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req updateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cuerpo de la petición inválido")
	}

	role := models.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
	if role != models.RoleEstudiante && role != models.RoleTutor {
		return badRequest(c, "Rol inválido")
	}

	user, err := h.Account.ChangeRole(userID, role)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrUserNotFound):
			return fiber.ErrUnauthorized
		case errors.Is(err, account.ErrNotApproved), errors.Is(err, account.ErrPhoneRequired):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
				"code":    "NOT_APPROVED",
			})
		default:
			return serverError(c, "No se pudo cambiar el rol")
		}
	}

	// The role claim lives inside the JWT; refresh the cookie so the new
	// role takes effect without a re-login.
	if _, err := issueSession(c, h.JWTSecret, h.JWTExpiresMin, user); err != nil {
		return serverError(c, "No se pudo renovar la sesión")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Rol actualizado",
		"data":    user,
	})
}
