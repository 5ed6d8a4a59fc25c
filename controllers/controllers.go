// Package controllers holds the Fiber handlers. Handlers parse the request,
// call one service operation and render the result or an ErrorResponse.
package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/middleware"
	"github.com/meinhoongagan/medicnote/services"
	"github.com/meinhoongagan/medicnote/utils"
)

// actor resolves the caller or writes a 401 and returns ok=false.
func actor(c *fiber.Ctx) (services.Actor, bool, error) {
	a, err := middleware.CurrentUser(c)
	if err != nil {
		return a, false, utils.RespondError(c, "Authentication required", err)
	}
	return a, true, nil
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
		Message: "Failed to parse request body",
		Error:   err.Error(),
	})
}
