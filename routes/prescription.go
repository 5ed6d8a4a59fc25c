package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/controllers"
	"github.com/meinhoongagan/medicnote/middleware"
	"github.com/meinhoongagan/medicnote/models"
)

// SetupPrescriptionRoutes configures prescription routes
func SetupPrescriptionRoutes(app *fiber.App, secret []byte, h *controllers.PrescriptionController) {
	rx := app.Group("/prescriptions", middleware.Protected(secret))
	doctorOnly := middleware.RequireRole(models.RoleDoctor)

	rx.Post("/", doctorOnly, h.CreatePrescription)
	rx.Get("/", middleware.RequireRole(models.RoleDoctor, models.RolePatient), h.GetPrescriptions)
	rx.Get("/search", middleware.RequireRole(models.RoleDoctor, models.RolePatient), h.SearchPrescriptions)
	rx.Get("/:id", h.GetPrescription)
	rx.Patch("/:id/status", doctorOnly, h.UpdatePrescriptionStatus)
	rx.Post("/:id/pdf", doctorOnly, h.UploadPrescriptionPDF)
	rx.Get("/:id/fulfillment", h.GetFulfillmentHistory)
}
