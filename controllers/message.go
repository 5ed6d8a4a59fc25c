package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/services"
	"github.com/meinhoongagan/medicnote/utils"
)

type MessageController struct {
	messaging *services.MessagingService
}

func NewMessageController(messaging *services.MessagingService) *MessageController {
	return &MessageController{messaging: messaging}
}

func threadScope(c *fiber.Ctx) models.ThreadScope {
	var scope models.ThreadScope
	if id := c.Query("appointment_id"); id != "" {
		scope.AppointmentID = &id
	}
	if id := c.Query("prescription_id"); id != "" {
		scope.PrescriptionID = &id
	}
	return scope
}

// GetThread godoc
// @Summary Conversation with a peer, oldest first
// @Tags messages
// @Produce json
// @Param peer path string true "Peer user ID"
// @Param appointment_id query string false "Limit to one appointment"
// @Param prescription_id query string false "Limit to one prescription"
// @Success 200 {array} models.Message
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /messages/{peer} [get]
func (h *MessageController) GetThread(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	msgs, err := h.messaging.ListThread(c.UserContext(), a.ID, c.Params("peer"), threadScope(c))
	if err != nil {
		return utils.RespondError(c, "Failed to fetch messages", err)
	}
	return c.JSON(msgs)
}

// SendMessage godoc
// @Summary Send a message to another user
// @Tags messages
// @Accept json
// @Produce json
// @Param message body services.SendMessageInput true "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /messages [post]
func (h *MessageController) SendMessage(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var in services.SendMessageInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	in.SenderID = a.ID
	m, err := h.messaging.Send(c.UserContext(), in)
	if err != nil {
		return utils.RespondError(c, "Failed to send message", err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

// StreamThread godoc
// @Summary Stream the conversation with a peer
// @Description Sends the full thread as a server-sent event whenever it changes.
// @Tags messages
// @Produce text/event-stream
// @Param peer path string true "Peer user ID"
// @Param appointment_id query string false "Limit to one appointment"
// @Param prescription_id query string false "Limit to one prescription"
// @Success 200 {array} models.Message
// @Failure 401 {object} utils.ErrorResponse
// @Router /messages/{peer}/stream [get]
func (h *MessageController) StreamThread(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	peer, scope := c.Params("peer"), threadScope(c)
	return streamSSE(c, "thread", func(ctx context.Context, onChange func([]models.Message)) (*services.Live[[]models.Message], error) {
		return h.messaging.WatchThread(ctx, a.ID, peer, scope, onChange)
	})
}
