package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/controllers"
	"github.com/meinhoongagan/medicnote/middleware"
)

func SetupMessageRoutes(app *fiber.App, secret []byte, h *controllers.MessageController) {
	messages := app.Group("/messages", middleware.Protected(secret))
	messages.Post("/", h.SendMessage)
	messages.Get("/:peer", h.GetThread)
	messages.Get("/:peer/stream", h.StreamThread)
}
