package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/services"
	"github.com/meinhoongagan/medicnote/utils"
)

type FulfillmentController struct {
	pharmacies    *services.PharmacyService
	prescriptions *services.PrescriptionService
}

func NewFulfillmentController(pharmacies *services.PharmacyService, prescriptions *services.PrescriptionService) *FulfillmentController {
	return &FulfillmentController{pharmacies: pharmacies, prescriptions: prescriptions}
}

// SearchPharmacies godoc
// @Summary List pharmacies, optionally by zip code
// @Tags pharmacies
// @Produce json
// @Param zip query string false "Zip code"
// @Success 200 {array} models.Pharmacy
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /pharmacies [get]
func (h *FulfillmentController) SearchPharmacies(c *fiber.Ctx) error {
	list, err := h.pharmacies.Search(c.UserContext(), c.Query("zip"))
	if err != nil {
		return utils.RespondError(c, "Failed to fetch pharmacies", err)
	}
	return c.JSON(list)
}

// RegisterPharmacy godoc
// @Summary Register a pharmacy
// @Tags pharmacies
// @Accept json
// @Produce json
// @Param pharmacy body models.Pharmacy true "Pharmacy"
// @Success 201 {object} models.Pharmacy
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Router /pharmacies [post]
func (h *FulfillmentController) RegisterPharmacy(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var p models.Pharmacy
	if err := c.BodyParser(&p); err != nil {
		return badBody(c, err)
	}
	created, err := h.pharmacies.Register(c.UserContext(), a, &p)
	if err != nil {
		return utils.RespondError(c, "Failed to register pharmacy", err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetClaimable godoc
// @Summary Prescriptions waiting for a pharmacy
// @Tags fulfillment
// @Produce json
// @Success 200 {array} models.Prescription
// @Failure 403 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /fulfillment/claimable [get]
func (h *FulfillmentController) GetClaimable(c *fiber.Ctx) error {
	list, err := h.pharmacies.ListClaimable(c.UserContext())
	if err != nil {
		return utils.RespondError(c, "Failed to fetch prescriptions", err)
	}
	return c.JSON(list)
}

// GetPharmacyQueue godoc
// @Summary Prescriptions assigned to a pharmacy
// @Tags fulfillment
// @Produce json
// @Param id path string true "Pharmacy ID"
// @Success 200 {array} models.Prescription
// @Failure 403 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /fulfillment/pharmacies/{id} [get]
func (h *FulfillmentController) GetPharmacyQueue(c *fiber.Ctx) error {
	list, err := h.pharmacies.ListForPharmacy(c.UserContext(), c.Params("id"))
	if err != nil {
		return utils.RespondError(c, "Failed to fetch prescriptions", err)
	}
	return c.JSON(list)
}

// AssignPharmacy godoc
// @Summary Claim a prescription for a pharmacy
// @Tags fulfillment
// @Accept json
// @Produce json
// @Param id path string true "Prescription ID"
// @Param assignment body object true "pharmacy_id"
// @Success 200 {object} models.Prescription
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /fulfillment/{id}/assign [post]
func (h *FulfillmentController) AssignPharmacy(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var body struct {
		PharmacyID string `json:"pharmacy_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badBody(c, err)
	}
	p, err := h.prescriptions.AssignPharmacy(c.UserContext(), a, c.Params("id"), body.PharmacyID)
	if err != nil {
		return utils.RespondError(c, "Failed to assign pharmacy", err)
	}
	return c.JSON(p)
}

// UpdateFulfillmentStatus godoc
// @Summary Advance a prescription through fulfillment
// @Tags fulfillment
// @Accept json
// @Produce json
// @Param id path string true "Prescription ID"
// @Param status body object true "status and optional notes"
// @Success 200 {object} models.Prescription
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /fulfillment/{id}/status [patch]
func (h *FulfillmentController) UpdateFulfillmentStatus(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var body struct {
		Status models.FulfillmentStatus `json:"status"`
		Notes  *string                  `json:"notes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badBody(c, err)
	}
	p, err := h.prescriptions.UpdateFulfillmentStatus(c.UserContext(), a, c.Params("id"), body.Status, body.Notes)
	if err != nil {
		return utils.RespondError(c, "Failed to update fulfillment status", err)
	}
	return c.JSON(p)
}
