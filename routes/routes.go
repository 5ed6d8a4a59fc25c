package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/controllers"
)

type Handlers struct {
	Auth          *controllers.AuthController
	Prescriptions *controllers.PrescriptionController
	Fulfillment   *controllers.FulfillmentController
	Messages      *controllers.MessageController
	Notifications *controllers.NotificationController
	Appointments  *controllers.AppointmentController
	HealthRecords *controllers.HealthRecordController
	Admin         *controllers.AdminController
}

// Setup mounts every route group on app.
func Setup(app *fiber.App, secret []byte, h Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	SetupAuthRoutes(app, secret, h.Auth)
	SetupPrescriptionRoutes(app, secret, h.Prescriptions)
	SetupFulfillmentRoutes(app, secret, h.Fulfillment)
	SetupMessageRoutes(app, secret, h.Messages)
	SetupNotificationRoutes(app, secret, h.Notifications)
	SetupAppointmentRoutes(app, secret, h.Appointments)
	SetupHealthRecordRoutes(app, secret, h.HealthRecords)
	SetupAdminRoutes(app, secret, h.Admin)
}
