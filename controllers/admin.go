package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/services"
	"github.com/meinhoongagan/medicnote/utils"
)

type AdminController struct {
	analytics *services.AnalyticsService
}

func NewAdminController(analytics *services.AnalyticsService) *AdminController {
	return &AdminController{analytics: analytics}
}

// GetOverview godoc
// @Summary Platform totals
// @Tags admin
// @Produce json
// @Success 200 {object} services.Overview
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /admin/overview [get]
func (h *AdminController) GetOverview(c *fiber.Ctx) error {
	ov, err := h.analytics.Overview(c.UserContext())
	if err != nil {
		return utils.RespondError(c, "Failed to fetch overview", err)
	}
	return c.JSON(ov)
}

// GetMonthlyPrescriptions godoc
// @Summary Prescriptions issued per month
// @Tags admin
// @Produce json
// @Success 200 {array} services.MonthBucket
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /admin/prescriptions/monthly [get]
func (h *AdminController) GetMonthlyPrescriptions(c *fiber.Ctx) error {
	buckets, err := h.analytics.MonthlyPrescriptions(c.UserContext())
	if err != nil {
		return utils.RespondError(c, "Failed to fetch prescription statistics", err)
	}
	return c.JSON(buckets)
}

// GetFulfillmentBreakdown godoc
// @Summary Prescriptions per fulfillment status
// @Tags admin
// @Produce json
// @Success 200 {array} services.StatusCount
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /admin/fulfillment [get]
func (h *AdminController) GetFulfillmentBreakdown(c *fiber.Ctx) error {
	counts, err := h.analytics.FulfillmentBreakdown(c.UserContext())
	if err != nil {
		return utils.RespondError(c, "Failed to fetch fulfillment statistics", err)
	}
	return c.JSON(counts)
}

// GetSystemLogs godoc
// @Summary Most recent audit log entries
// @Tags admin
// @Produce json
// @Param limit query int false "Maximum entries"
// @Success 200 {array} models.SystemLog
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /admin/logs [get]
func (h *AdminController) GetSystemLogs(c *fiber.Ctx) error {
	logs, err := h.analytics.SystemLogs(c.UserContext(), c.QueryInt("limit", services.DefaultLogLimit))
	if err != nil {
		return utils.RespondError(c, "Failed to fetch system logs", err)
	}
	return c.JSON(logs)
}
