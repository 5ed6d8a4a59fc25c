package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/logger"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/services"
)

const (
	localUserID = "userID"
	localRole   = "role"
)

// Protected verifies the bearer token and stores the caller's id and role
// in the request locals.
func Protected(secret []byte) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   secret,
		ErrorHandler: jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error":   "Unauthorized",
					"message": "No authentication token",
				})
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error":   "Unauthorized",
					"message": "Invalid token claims",
				})
			}

			userID, err := extractUserID(claims)
			if err != nil {
				logger.Log.Debug().Err(err).Msg("user id extraction")
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error":   "Unauthorized",
					"message": "Invalid user ID in token",
				})
			}

			role, err := extractRole(claims)
			if err != nil {
				logger.Log.Debug().Err(err).Msg("role extraction")
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error":   "Unauthorized",
					"message": "Invalid role in token",
				})
			}

			c.Locals(localUserID, userID)
			c.Locals(localRole, role)
			return c.Next()
		},
	})
}

// CurrentUser returns the caller stored by Protected.
func CurrentUser(c *fiber.Ctx) (services.Actor, error) {
	id, _ := c.Locals(localUserID).(string)
	role, _ := c.Locals(localRole).(models.Role)
	if id == "" || role == "" {
		return services.Actor{}, errs.ErrAuthenticationRequired
	}
	return services.Actor{ID: id, Role: role}, nil
}

func extractUserID(claims jwt.MapClaims) (string, error) {
	idVal := claims["id"]
	if idVal == nil {
		return "", fmt.Errorf("no ID found in claims")
	}
	id, ok := idVal.(string)
	if !ok || id == "" {
		return "", fmt.Errorf("unsupported ID type: %T", idVal)
	}
	return id, nil
}

func extractRole(claims jwt.MapClaims) (models.Role, error) {
	roleVal := claims["role"]
	if roleVal == nil {
		return "", fmt.Errorf("no role found in claims")
	}
	name, ok := roleVal.(string)
	if !ok {
		return "", fmt.Errorf("unsupported role type: %T", roleVal)
	}
	role := models.Role(name)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", name)
	}
	return role, nil
}

// jwtError handles JWT errors
func jwtError(c *fiber.Ctx, err error) error {
	logger.Log.Debug().Err(err).Str("path", c.Path()).Msg("jwt rejected")
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "Unauthorized",
		"message": "Invalid or expired token",
	})
}
