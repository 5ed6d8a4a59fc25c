package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/services"
	"github.com/meinhoongagan/medicnote/utils"
)

type PrescriptionController struct {
	prescriptions *services.PrescriptionService
}

func NewPrescriptionController(prescriptions *services.PrescriptionService) *PrescriptionController {
	return &PrescriptionController{prescriptions: prescriptions}
}

// CreatePrescription godoc
// @Summary Issue a prescription
// @Tags prescriptions
// @Accept json
// @Produce json
// @Param prescription body services.CreatePrescriptionInput true "Prescription"
// @Success 201 {object} models.Prescription
// @Failure 400 {object} utils.ErrorResponse
// @Router /prescriptions [post]
func (h *PrescriptionController) CreatePrescription(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var in services.CreatePrescriptionInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	in.DoctorID = a.ID
	p, err := h.prescriptions.Create(c.UserContext(), in)
	if err != nil {
		return utils.RespondError(c, "Failed to create prescription", err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// GetPrescriptions godoc
// @Summary List the caller's prescriptions, newest first
// @Tags prescriptions
// @Produce json
// @Success 200 {array} models.Prescription
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /prescriptions [get]
func (h *PrescriptionController) GetPrescriptions(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	list, err := h.prescriptions.ListFor(c.UserContext(), a)
	if err != nil {
		return utils.RespondError(c, "Failed to fetch prescriptions", err)
	}
	return c.JSON(list)
}

// SearchPrescriptions godoc
// @Summary Search the caller's prescriptions by diagnosis or medication
// @Tags prescriptions
// @Produce json
// @Param q query string false "Search text"
// @Success 200 {array} models.Prescription
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /prescriptions/search [get]
func (h *PrescriptionController) SearchPrescriptions(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	list, err := h.prescriptions.Search(c.UserContext(), a, c.Query("q"))
	if err != nil {
		return utils.RespondError(c, "Failed to search prescriptions", err)
	}
	return c.JSON(list)
}

// GetPrescription godoc
// @Summary Get one prescription
// @Tags prescriptions
// @Produce json
// @Param id path string true "Prescription ID"
// @Success 200 {object} models.Prescription
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /prescriptions/{id} [get]
func (h *PrescriptionController) GetPrescription(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	p, err := h.prescriptions.Get(c.UserContext(), a, c.Params("id"))
	if err != nil {
		return utils.RespondError(c, "Prescription not found", err)
	}
	return c.JSON(p)
}

// UpdatePrescriptionStatus godoc
// @Summary Change a prescription's clinical status
// @Tags prescriptions
// @Accept json
// @Produce json
// @Param id path string true "Prescription ID"
// @Param status body object true "status"
// @Success 200 {object} models.Prescription
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /prescriptions/{id}/status [patch]
func (h *PrescriptionController) UpdatePrescriptionStatus(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var body struct {
		Status models.ClinicalStatus `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badBody(c, err)
	}
	p, err := h.prescriptions.UpdateClinicalStatus(c.UserContext(), a, c.Params("id"), body.Status)
	if err != nil {
		return utils.RespondError(c, "Failed to update prescription", err)
	}
	return c.JSON(p)
}

// UploadPrescriptionPDF godoc
// @Summary Attach the rendered prescription PDF
// @Tags prescriptions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Prescription ID"
// @Param file formData file true "PDF document"
// @Success 200 {object} models.Prescription
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse
// @Router /prescriptions/{id}/pdf [post]
func (h *PrescriptionController) UploadPrescriptionPDF(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
			Message: "A PDF file is required",
			Error:   err.Error(),
		})
	}
	file, err := fh.Open()
	if err != nil {
		return utils.RespondError(c, "Failed to read upload", err)
	}
	defer file.Close()

	p, err := h.prescriptions.AttachPDF(c.UserContext(), a, c.Params("id"), fh.Size, file)
	if err != nil {
		return utils.RespondError(c, "Failed to attach PDF", err)
	}
	return c.JSON(p)
}

// GetFulfillmentHistory godoc
// @Summary Fulfillment log of a prescription, oldest first
// @Tags prescriptions
// @Produce json
// @Param id path string true "Prescription ID"
// @Success 200 {array} models.FulfillmentLog
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /prescriptions/{id}/fulfillment [get]
func (h *PrescriptionController) GetFulfillmentHistory(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	logs, err := h.prescriptions.FulfillmentHistory(c.UserContext(), a, c.Params("id"))
	if err != nil {
		return utils.RespondError(c, "Failed to fetch fulfillment history", err)
	}
	return c.JSON(logs)
}
