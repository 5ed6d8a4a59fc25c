package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/controllers"
	"github.com/meinhoongagan/medicnote/middleware"
	"github.com/meinhoongagan/medicnote/models"
)

// SetupAppointmentRoutes configures all appointment related routes
func SetupAppointmentRoutes(app *fiber.App, secret []byte, h *controllers.AppointmentController) {
	appointment := app.Group("/appointments", middleware.Protected(secret), middleware.RequireRole(models.RolePatient, models.RoleDoctor))
	appointment.Get("/", h.GetAppointments)
	appointment.Post("/", middleware.RequireRole(models.RolePatient), h.CreateAppointment)
	appointment.Patch("/:id/status", h.UpdateAppointmentStatus)
	appointment.Delete("/:id", h.CancelAppointment)
}
