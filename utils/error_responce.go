package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/logger"
)

// ErrorResponse is a struct for error response
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errs.IsValidation(err):
		return fiber.StatusBadRequest
	case errors.Is(err, errs.ErrAuthenticationRequired):
		return fiber.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		return fiber.StatusConflict
	case errs.IsInvalidTransition(err):
		return fiber.StatusUnprocessableEntity
	case errs.IsRemote(err):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// RespondError writes the standard error body with the status matching err.
func RespondError(c *fiber.Ctx, message string, err error) error {
	status := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		logger.Log.Error().Err(err).Str("path", c.Path()).Msg(message)
	}
	return c.Status(status).JSON(ErrorResponse{
		Message: message,
		Error:   err.Error(),
	})
}
