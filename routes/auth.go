package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/controllers"
	"github.com/meinhoongagan/medicnote/middleware"
)

// SetupAuthRoutes configures all authentication related routes
func SetupAuthRoutes(app *fiber.App, secret []byte, h *controllers.AuthController) {
	auth := app.Group("/auth")

	// Public routes
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)

	// Protected routes
	auth.Get("/me", middleware.Protected(secret), h.Me)
	auth.Post("/logout", middleware.Protected(secret), h.Logout)

	app.Get("/doctors", middleware.Protected(secret), h.Doctors)
}
