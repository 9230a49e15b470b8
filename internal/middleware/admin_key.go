package middleware

import (
	"crypto/subtle"
	"log"

	"github.com/gofiber/fiber/v2"
)

// RequireAdminKey guards the admin panel routes: the x-admin-key header must
// equal the configured server secret. An unset secret locks the panel.
func RequireAdminKey(expected string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expected == "" {
			log.Println("ADMIN_SECRET_KEY not set, admin routes disabled")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "No autorizado",
			})
		}

		got := c.Get("x-admin-key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "No autorizado",
			})
		}

		return c.Next()
	}
}
