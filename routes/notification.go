package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/controllers"
	"github.com/meinhoongagan/medicnote/middleware"
)

func SetupNotificationRoutes(app *fiber.App, secret []byte, h *controllers.NotificationController) {
	n := app.Group("/notifications", middleware.Protected(secret))
	n.Get("/", h.GetNotifications)
	n.Get("/unread-count", h.GetUnreadCount)
	n.Get("/stream", h.StreamNotifications)
	n.Post("/read-all", h.MarkAllRead)
	n.Patch("/:id/read", h.MarkRead)
	n.Delete("/:id", h.DeleteNotification)
}
