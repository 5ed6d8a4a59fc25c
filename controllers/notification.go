package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/services"
	"github.com/meinhoongagan/medicnote/utils"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// GetNotifications godoc
// @Summary List the caller's notifications, newest first
// @Tags notifications
// @Produce json
// @Success 200 {array} models.Notification
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /notifications [get]
func (h *NotificationController) GetNotifications(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	list, err := h.notifications.List(c.UserContext(), a.ID)
	if err != nil {
		return utils.RespondError(c, "Failed to fetch notifications", err)
	}
	return c.JSON(list)
}

// GetUnreadCount godoc
// @Summary Number of unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /notifications/unread-count [get]
func (h *NotificationController) GetUnreadCount(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	n, err := h.notifications.UnreadCount(c.UserContext(), a.ID)
	if err != nil {
		return utils.RespondError(c, "Failed to count notifications", err)
	}
	return c.JSON(fiber.Map{"unread_count": n})
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Tags notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /notifications/{id}/read [patch]
func (h *NotificationController) MarkRead(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	if err := h.notifications.MarkRead(c.UserContext(), a.ID, c.Params("id")); err != nil {
		return utils.RespondError(c, "Failed to mark notification as read", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkAllRead godoc
// @Summary Mark all of the caller's notifications as read
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /notifications/read-all [post]
func (h *NotificationController) MarkAllRead(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	n, err := h.notifications.MarkAllRead(c.UserContext(), a.ID)
	if err != nil {
		return utils.RespondError(c, "Failed to mark notifications as read", err)
	}
	return c.JSON(fiber.Map{"updated": n})
}

// DeleteNotification godoc
// @Summary Delete a notification permanently
// @Tags notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /notifications/{id} [delete]
func (h *NotificationController) DeleteNotification(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	if err := h.notifications.Delete(c.UserContext(), a.ID, c.Params("id")); err != nil {
		return utils.RespondError(c, "Failed to delete notification", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StreamNotifications godoc
// @Summary Stream the caller's notifications and unread count
// @Tags notifications
// @Produce text/event-stream
// @Success 200 {object} services.NotificationFeed
// @Failure 401 {object} utils.ErrorResponse
// @Router /notifications/stream [get]
func (h *NotificationController) StreamNotifications(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	return streamSSE(c, "notifications", func(ctx context.Context, onChange func(services.NotificationFeed)) (*services.Live[services.NotificationFeed], error) {
		return h.notifications.Watch(ctx, a.ID, onChange)
	})
}
