package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/controllers"
	"github.com/meinhoongagan/medicnote/middleware"
	"github.com/meinhoongagan/medicnote/models"
)

// SetupFulfillmentRoutes configures pharmacy directory and fulfillment routes
func SetupFulfillmentRoutes(app *fiber.App, secret []byte, h *controllers.FulfillmentController) {
	pharmacies := app.Group("/pharmacies", middleware.Protected(secret))
	pharmacies.Get("/", h.SearchPharmacies)
	pharmacies.Post("/", middleware.RequireRole(models.RolePharmacist, models.RoleAdmin), h.RegisterPharmacy)

	fulfillment := app.Group("/fulfillment", middleware.Protected(secret), middleware.RequireRole(models.RolePharmacist))
	fulfillment.Get("/claimable", h.GetClaimable)
	fulfillment.Get("/pharmacies/:id", h.GetPharmacyQueue)
	fulfillment.Post("/:id/assign", h.AssignPharmacy)
	fulfillment.Patch("/:id/status", h.UpdateFulfillmentStatus)
}
