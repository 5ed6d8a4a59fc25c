package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/services"
	"github.com/meinhoongagan/medicnote/utils"
)

type HealthRecordController struct {
	records *services.HealthRecordService
}

func NewHealthRecordController(records *services.HealthRecordService) *HealthRecordController {
	return &HealthRecordController{records: records}
}

// UploadDocument godoc
// @Summary Upload a document to the caller's health records
// @Tags health-records
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document"
// @Param title formData string false "Title"
// @Param record_type formData string false "Record type"
// @Success 201 {object} models.HealthRecord
// @Failure 400 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse
// @Router /health-records/upload [post]
func (h *HealthRecordController) UploadDocument(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
			Message: "A file is required",
			Error:   err.Error(),
		})
	}
	file, err := fh.Open()
	if err != nil {
		return utils.RespondError(c, "Failed to read upload", err)
	}
	defer file.Close()

	rec, err := h.records.UploadDocument(c.UserContext(), services.UploadDocumentInput{
		PatientID:   a.ID,
		Title:       c.FormValue("title"),
		RecordType:  c.FormValue("record_type"),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		File:        file,
	})
	if err != nil {
		return utils.RespondError(c, "Failed to upload document", err)
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

// CreateRecord godoc
// @Summary Add a structured health record for a patient
// @Tags health-records
// @Accept json
// @Produce json
// @Param record body models.HealthRecord true "Record"
// @Success 201 {object} models.HealthRecord
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Router /health-records [post]
func (h *HealthRecordController) CreateRecord(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	var rec models.HealthRecord
	if err := c.BodyParser(&rec); err != nil {
		return badBody(c, err)
	}
	doctorID := a.ID
	rec.DoctorID = &doctorID
	created, err := h.records.CreateRecord(c.UserContext(), &rec)
	if err != nil {
		return utils.RespondError(c, "Failed to create health record", err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetRecords godoc
// @Summary List a patient's health records
// @Description Patients see their own records. Doctors pass patient_id. Optional q and type narrow the list.
// @Tags health-records
// @Produce json
// @Param patient_id query string false "Patient ID, required for doctors"
// @Param q query string false "Search text"
// @Param type query string false "Record type or all"
// @Success 200 {array} models.HealthRecord
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /health-records [get]
func (h *HealthRecordController) GetRecords(c *fiber.Ctx) error {
	a, ok, err := actor(c)
	if !ok {
		return err
	}
	patientID := a.ID
	if !a.Is(models.RolePatient) {
		patientID = c.Query("patient_id")
		if patientID == "" {
			return utils.RespondError(c, "patient_id is required", errs.Required("patient_id"))
		}
	}
	records, err := h.records.ListForPatient(c.UserContext(), patientID)
	if err != nil {
		return utils.RespondError(c, "Failed to fetch health records", err)
	}
	return c.JSON(services.FilterRecords(records, c.Query("q"), c.Query("type", services.RecordTypeAll)))
}
