package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/services/otp"
	"github.com/chamba-tutorias/backend/internal/utils"
)

const authCookie = "ct_token"

// issueSession signs a fresh token for the user and sets the session
// cookie. Called on login and again whenever the user's role changes, so
// the role claim never lags the database.
func issueSession(c *fiber.Ctx, secret string, expiresMin int, user *models.User) (string, error) {
	token, err := utils.SignJWT(secret, user.ID.String(), user.Role, expiresMin)
	if err != nil {
		return "", err
	}
	c.Cookie(&fiber.Cookie{
		Name:     authCookie,
		Value:    token,
		Expires:  time.Now().Add(time.Duration(expiresMin) * time.Minute),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})
	return token, nil
}

type AuthHandler struct {
	OTP           *otp.Service
	JWTSecret     string
	JWTExpiresMin int
}

func NewAuthHandler(otpSvc *otp.Service, jwtSecret string, jwtExpiresMin int) *AuthHandler {
	return &AuthHandler{OTP: otpSvc, JWTSecret: jwtSecret, JWTExpiresMin: jwtExpiresMin}
}

type sendOTPRequest struct {
	Phone string `json:"phone"`
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// SendOTP issues a verification code for a phone number.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cuerpo de la petición inválido")
	}
	if req.Phone == "" {
		return badRequest(c, "El teléfono es requerido")
	}

	if err := h.OTP.SendCode(req.Phone); err != nil {
		if errors.Is(err, otp.ErrInvalidPhone) {
			return badRequest(c, err.Error())
		}
		return serverError(c, "No se pudo enviar el código")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Código enviado",
	})
}

// VerifyOTP checks the code, upserts the user and opens a session.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cuerpo de la petición inválido")
	}
	if req.Phone == "" || req.Code == "" {
		return badRequest(c, "Teléfono y código son requeridos")
	}

	user, err := h.OTP.Verify(req.Phone, req.Code)
	if err != nil {
		if errors.Is(err, otp.ErrInvalidPhone) || errors.Is(err, otp.ErrInvalidCode) {
			return badRequest(c, err.Error())
		}
		return serverError(c, "No se pudo verificar el código")
	}

	token, err := issueSession(c, h.JWTSecret, h.JWTExpiresMin, user)
	if err != nil {
		return serverError(c, "No se pudo crear la sesión")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Sesión iniciada",
		"data": fiber.Map{
			"token": token,
			"user":  user,
		},
	})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     authCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Sesión cerrada",
	})
}
