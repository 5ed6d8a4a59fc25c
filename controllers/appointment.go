package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/services"
	"github.com/meinhoongagan/medicnote/utils"
)

type AppointmentController struct {
	appointments *services.AppointmentService
}

func NewAppointmentController(appointments *services.AppointmentService) *AppointmentController {
	return &AppointmentController{appointments: appointments}
}

// CreateAppointment godoc
// @Summary Book an appointment for the calling patient
// @Tags appointments
// @Accept json
// @Produce json
// @Param appointment body services.BookAppointmentInput true "Appointment"
// @Success 201 {object} models.Appointment
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Router /appointments [post]
func (h *AppointmentController) CreateAppointment(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var in services.BookAppointmentInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	in.PatientID = a.ID
	appointment, err := h.appointments.Book(c.UserContext(), in)
	if err != nil {
		return utils.RespondError(c, "Failed to create appointment", err)
	}
	return c.Status(fiber.StatusCreated).JSON(appointment)
}

// GetAppointments godoc
// @Summary List the caller's appointments, soonest first
// @Tags appointments
// @Produce json
// @Success 200 {array} models.Appointment
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /appointments [get]
func (h *AppointmentController) GetAppointments(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	appointments, err := h.appointments.ListFor(c.UserContext(), a)
	if err != nil {
		return utils.RespondError(c, "Failed to fetch appointments", err)
	}
	return c.JSON(appointments)
}

// UpdateAppointmentStatus godoc
// @Summary Move an appointment to a new status
// @Tags appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param status body object true "status"
// @Success 200 {object} models.Appointment
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /appointments/{id}/status [patch]
func (h *AppointmentController) UpdateAppointmentStatus(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var body struct {
		Status models.AppointmentStatus `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badBody(c, err)
	}
	appointment, err := h.appointments.UpdateStatus(c.UserContext(), a, c.Params("id"), body.Status)
	if err != nil {
		return utils.RespondError(c, "Failed to update appointment", err)
	}
	return c.JSON(appointment)
}

// CancelAppointment godoc
// @Summary Cancel an appointment
// @Tags appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} models.Appointment
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /appointments/{id} [delete]
func (h *AppointmentController) CancelAppointment(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	appointment, err := h.appointments.Cancel(c.UserContext(), a, c.Params("id"))
	if err != nil {
		return utils.RespondError(c, "Failed to cancel appointment", err)
	}
	return c.JSON(appointment)
}
