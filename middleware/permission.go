package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/models"
)

// RequireRole lets the request through only when the caller holds one of
// roles. It must run after Protected.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := CurrentUser(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "Unauthorized",
				"message": "Authentication required",
			})
		}
		if !actor.Is(roles...) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "Forbidden",
				"message": "You don't have the required role to perform this action",
			})
		}
		return c.Next()
	}
}
