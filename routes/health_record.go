package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/controllers"
	"github.com/meinhoongagan/medicnote/middleware"
	"github.com/meinhoongagan/medicnote/models"
)

func SetupHealthRecordRoutes(app *fiber.App, secret []byte, h *controllers.HealthRecordController) {
	records := app.Group("/health-records", middleware.Protected(secret), middleware.RequireRole(models.RolePatient, models.RoleDoctor))
	records.Get("/", h.GetRecords)
	records.Post("/upload", middleware.RequireRole(models.RolePatient), h.UploadDocument)
	records.Post("/", middleware.RequireRole(models.RoleDoctor), h.CreateRecord)
}
