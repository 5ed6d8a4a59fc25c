package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/controllers"
	"github.com/meinhoongagan/medicnote/middleware"
	"github.com/meinhoongagan/medicnote/models"
)

// SetupAdminRoutes configures the read-only analytics dashboard routes
func SetupAdminRoutes(app *fiber.App, secret []byte, h *controllers.AdminController) {
	admin := app.Group("/admin", middleware.Protected(secret), middleware.RequireRole(models.RoleAdmin))
	admin.Get("/overview", h.GetOverview)
	admin.Get("/prescriptions/monthly", h.GetMonthlyPrescriptions)
	admin.Get("/fulfillment", h.GetFulfillmentBreakdown)
	admin.Get("/logs", h.GetSystemLogs)
}
