package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/logger"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/realtime"
	"github.com/meinhoongagan/medicnote/repository"
	"github.com/meinhoongagan/medicnote/utils"
)

const noteAssigned = "Prescription assigned to pharmacy"

type PrescriptionService struct {
	prescriptions repository.Prescriptions
	pharmacies    repository.Pharmacies
	profiles      repository.Profiles
	notifications *NotificationService
	audit         *AuditService
	uploader      utils.Uploader
	mailer        utils.Mailer
	feed          realtime.Feed
	now           func() time.Time
}

type PrescriptionDeps struct {
	Store         *repository.Store
	Notifications *NotificationService
	Audit         *AuditService
	Uploader      utils.Uploader
	Mailer        utils.Mailer
	Feed          realtime.Feed
}

func NewPrescriptionService(d PrescriptionDeps) *PrescriptionService {
	return &PrescriptionService{
		prescriptions: d.Store.Prescriptions,
		pharmacies:    d.Store.Pharmacies,
		profiles:      d.Store.Profiles,
		notifications: d.Notifications,
		audit:         d.Audit,
		uploader:      d.Uploader,
		mailer:        d.Mailer,
		feed:          d.Feed,
		now:           time.Now,
	}
}

type CreatePrescriptionInput struct {
	DoctorID    string              `json:"-"`
	PatientID   string              `json:"patient_id"`
	Diagnosis   string              `json:"diagnosis"`
	Medications []models.Medication `json:"medications"`
	Notes       *string             `json:"notes"`
}

func (in *CreatePrescriptionInput) validate() error {
	if in.DoctorID == "" {
		return errs.Required("doctor_id")
	}
	if in.PatientID == "" {
		return errs.Required("patient_id")
	}
	if strings.TrimSpace(in.Diagnosis) == "" {
		return errs.Required("diagnosis")
	}
	if len(in.Medications) == 0 {
		return errs.Required("medications")
	}
	for i, m := range in.Medications {
		if strings.TrimSpace(m.Name) == "" {
			return errs.Required(fmt.Sprintf("medications[%d].name", i))
		}
	}
	return nil
}

func prescriptionEvent(op realtime.Op, p *models.Prescription) realtime.Event {
	fields := map[string]string{
		"patient_id":         p.PatientID,
		"doctor_id":          p.DoctorID,
		"fulfillment_status": string(p.FulfillmentStatus),
	}
	if p.PharmacyID != nil {
		fields["pharmacy_id"] = *p.PharmacyID
	}
	return realtime.NewEvent(models.TablePrescriptions, op, p.ID, fields)
}

// Create issues a new prescription. It starts active and pending fulfillment.
func (s *PrescriptionService) Create(ctx context.Context, in CreatePrescriptionInput) (*models.Prescription, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	patient, err := s.profiles.GetByID(ctx, in.PatientID)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	if err != nil || patient.Role != models.RolePatient {
		return nil, errs.Invalid("patient_id", "unknown patient %s", in.PatientID)
	}

	meds := make([]models.Medication, len(in.Medications))
	for i, m := range in.Medications {
		meds[i] = models.Medication{
			Name:         strings.TrimSpace(m.Name),
			Dosage:       strings.TrimSpace(m.Dosage),
			Frequency:    strings.TrimSpace(m.Frequency),
			Instructions: strings.TrimSpace(m.Instructions),
		}
	}
	p := &models.Prescription{
		PatientID:         in.PatientID,
		DoctorID:          in.DoctorID,
		Diagnosis:         strings.TrimSpace(in.Diagnosis),
		Medications:       meds,
		Notes:             in.Notes,
		DateIssued:        s.now(),
		Status:            models.StatusActive,
		FulfillmentStatus: models.FulfillmentPending,
	}
	if err := s.prescriptions.Create(ctx, p); err != nil {
		return nil, err
	}

	publish(ctx, s.feed, prescriptionEvent(realtime.OpInsert, p))
	s.notifications.notifyQuietly(ctx, p.PatientID, "New prescription",
		fmt.Sprintf("A new prescription for %s has been issued.", p.Diagnosis), models.NotificationInfo)
	s.audit.recordQuietly(ctx, AuditEntry{
		UserID:  p.DoctorID,
		Action:  ActionPrescriptionCreated,
		Details: map[string]interface{}{"prescription_id": p.ID, "patient_id": p.PatientID},
	})
	return p, nil
}

func canViewPrescription(a Actor, p *models.Prescription) bool {
	switch a.Role {
	case models.RoleAdmin, models.RolePharmacist:
		return true
	case models.RoleDoctor:
		return p.DoctorID == a.ID
	case models.RolePatient:
		return p.PatientID == a.ID
	}
	return false
}

// Get loads a prescription the actor is allowed to see.
func (s *PrescriptionService) Get(ctx context.Context, actor Actor, id string) (*models.Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canViewPrescription(actor, p) {
		return nil, errs.ErrForbidden
	}
	return p, nil
}

func (s *PrescriptionService) ListForDoctor(ctx context.Context, doctorID string) ([]models.Prescription, error) {
	return s.prescriptions.List(ctx, repository.PrescriptionFilter{DoctorID: doctorID})
}

func (s *PrescriptionService) ListForPatient(ctx context.Context, patientID string) ([]models.Prescription, error) {
	return s.prescriptions.List(ctx, repository.PrescriptionFilter{PatientID: patientID})
}

// ListFor returns the actor's own prescriptions: issued ones for doctors,
// received ones for patients.
func (s *PrescriptionService) ListFor(ctx context.Context, actor Actor) ([]models.Prescription, error) {
	switch actor.Role {
	case models.RoleDoctor:
		return s.ListForDoctor(ctx, actor.ID)
	case models.RolePatient:
		return s.ListForPatient(ctx, actor.ID)
	case models.RoleAdmin:
		return s.prescriptions.List(ctx, repository.PrescriptionFilter{})
	}
	return nil, errs.ErrForbidden
}

// Search filters the actor's prescriptions by a case-insensitive term
// matched against the diagnosis and every medication field.
func (s *PrescriptionService) Search(ctx context.Context, actor Actor, term string) ([]models.Prescription, error) {
	all, err := s.ListFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	return FilterPrescriptions(all, term), nil
}

func FilterPrescriptions(list []models.Prescription, term string) []models.Prescription {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return list
	}
	out := make([]models.Prescription, 0, len(list))
	for _, p := range list {
		if prescriptionMatches(p, term) {
			out = append(out, p)
		}
	}
	return out
}

func prescriptionMatches(p models.Prescription, term string) bool {
	if strings.Contains(strings.ToLower(p.Diagnosis), term) {
		return true
	}
	for _, m := range p.Medications {
		for _, field := range []string{m.Name, m.Dosage, m.Frequency, m.Instructions} {
			if strings.Contains(strings.ToLower(field), term) {
				return true
			}
		}
	}
	return false
}

// UpdateClinicalStatus moves the doctor-side status. Only the issuing
// doctor may change it.
func (s *PrescriptionService) UpdateClinicalStatus(ctx context.Context, actor Actor, id string, status models.ClinicalStatus) (*models.Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Is(models.RoleDoctor) || p.DoctorID != actor.ID {
		return nil, errs.ErrForbidden
	}
	if err := p.Status.CheckTransition(status); err != nil {
		return nil, err
	}
	if err := s.prescriptions.UpdateStatus(ctx, id, p.Status, status); err != nil {
		return nil, err
	}
	updated, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.feed, prescriptionEvent(realtime.OpUpdate, updated))
	s.audit.recordQuietly(ctx, AuditEntry{
		UserID:  actor.ID,
		Action:  ActionPrescriptionStatus,
		Details: map[string]interface{}{"prescription_id": id, "from": p.Status, "to": status},
	})
	return updated, nil
}

// AttachPDF uploads the rendered prescription and stores its URL.
func (s *PrescriptionService) AttachPDF(ctx context.Context, actor Actor, id string, size int64, file io.Reader) (*models.Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Is(models.RoleDoctor) || p.DoctorID != actor.ID {
		return nil, errs.ErrForbidden
	}
	if size <= 0 || file == nil {
		return nil, errs.Required("file")
	}
	key := ObjectKey(actor.ID, s.now(), "prescription.pdf")
	url, err := s.uploader.Upload(ctx, key, file)
	if err != nil {
		return nil, err
	}
	if err := s.prescriptions.SetPDFURL(ctx, id, url); err != nil {
		return nil, err
	}
	p.PDFURL = &url
	publish(ctx, s.feed, prescriptionEvent(realtime.OpUpdate, p))
	return p, nil
}

// FulfillmentHistory returns the fulfillment log, oldest first.
func (s *PrescriptionService) FulfillmentHistory(ctx context.Context, actor Actor, id string) ([]models.FulfillmentLog, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.prescriptions.ListFulfillmentLogs(ctx, id)
}

// AssignPharmacy claims a pending prescription for a pharmacy and moves it
// to approved in the same unit of work as its log entry.
func (s *PrescriptionService) AssignPharmacy(ctx context.Context, actor Actor, id, pharmacyID string) (*models.Prescription, error) {
	if pharmacyID == "" {
		return nil, errs.Required("pharmacy_id")
	}
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.FulfillmentStatus != models.FulfillmentPending {
		return nil, &errs.InvalidTransitionError{Kind: "fulfillment", From: string(p.FulfillmentStatus), To: string(models.FulfillmentApproved)}
	}
	if _, err := s.pharmacies.GetByID(ctx, pharmacyID); err != nil {
		return nil, fmt.Errorf("pharmacy %s: %w", pharmacyID, err)
	}

	change := models.FulfillmentChange{
		PrescriptionID: id,
		From:           models.FulfillmentPending,
		To:             models.FulfillmentApproved,
		PharmacyID:     &pharmacyID,
		Log: &models.FulfillmentLog{
			PrescriptionID: id,
			PharmacyID:     &pharmacyID,
			Status:         models.FulfillmentApproved,
			Notes:          noteAssigned,
		},
	}
	if err := s.prescriptions.ApplyFulfillment(ctx, change); err != nil {
		return nil, err
	}
	return s.afterFulfillment(ctx, actor, p, change, ActionPharmacyAssigned)
}

// UpdateFulfillmentStatus advances the pipeline one step, or rejects the
// prescription from any state before delivery. Advancing requires an
// assigned pharmacy.
func (s *PrescriptionService) UpdateFulfillmentStatus(ctx context.Context, actor Actor, id string, status models.FulfillmentStatus, notes *string) (*models.Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.FulfillmentStatus.CheckTransition(status); err != nil {
		return nil, err
	}
	if status != models.FulfillmentRejected && p.PharmacyID == nil {
		return nil, errs.Invalid("pharmacy_id", "a pharmacy must be assigned before moving to %s", status)
	}

	logNote := fmt.Sprintf("Status updated to %s", status)
	if notes != nil && strings.TrimSpace(*notes) != "" {
		trimmed := strings.TrimSpace(*notes)
		notes = &trimmed
		logNote = trimmed
	} else {
		notes = nil
	}
	change := models.FulfillmentChange{
		PrescriptionID: id,
		From:           p.FulfillmentStatus,
		To:             status,
		Notes:          notes,
		Log: &models.FulfillmentLog{
			PrescriptionID: id,
			PharmacyID:     p.PharmacyID,
			Status:         status,
			Notes:          logNote,
		},
	}
	if err := s.prescriptions.ApplyFulfillment(ctx, change); err != nil {
		return nil, err
	}
	return s.afterFulfillment(ctx, actor, p, change, ActionFulfillmentChanged)
}

func fulfillmentNotificationType(status models.FulfillmentStatus) models.NotificationType {
	switch status {
	case models.FulfillmentReady, models.FulfillmentDelivered:
		return models.NotificationSuccess
	case models.FulfillmentRejected:
		return models.NotificationError
	}
	return models.NotificationInfo
}

func (s *PrescriptionService) afterFulfillment(ctx context.Context, actor Actor, before *models.Prescription, change models.FulfillmentChange, action string) (*models.Prescription, error) {
	updated, err := s.prescriptions.GetByID(ctx, change.PrescriptionID)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.feed, prescriptionEvent(realtime.OpUpdate, updated))

	s.notifications.notifyQuietly(ctx, updated.PatientID,
		fmt.Sprintf("Prescription %s", change.To),
		fmt.Sprintf("Your prescription for %s is now %s.", updated.Diagnosis, change.To),
		fulfillmentNotificationType(change.To))
	s.audit.recordQuietly(ctx, AuditEntry{
		UserID: actor.ID,
		Action: action,
		Details: map[string]interface{}{
			"prescription_id": updated.ID,
			"from":            before.FulfillmentStatus,
			"to":              change.To,
			"pharmacy_id":     strOrEmpty(updated.PharmacyID),
		},
	})
	if change.To == models.FulfillmentReady {
		s.mailReady(ctx, updated)
	}
	return updated, nil
}

func (s *PrescriptionService) mailReady(ctx context.Context, p *models.Prescription) {
	if s.mailer == nil {
		return
	}
	patient, err := s.profiles.GetByID(ctx, p.PatientID)
	if err != nil {
		logWarn(err, "load patient for ready email", p.ID)
		return
	}
	pharmacy := "your pharmacy"
	if p.Pharmacy != nil {
		pharmacy = p.Pharmacy.Name
	}
	subject := "Your prescription is ready"
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your prescription for <strong>%s</strong> is ready for pickup at %s.</p>
		<p>Best regards,</p>
		<p>MedicNote</p>
	`, patient.FullName, p.Diagnosis, pharmacy)
	go func(to string) {
		if err := s.mailer.Send(to, subject, body); err != nil {
			logger.Log.Warn().Err(err).Str("prescription_id", p.ID).Msg("send ready email")
		}
	}(patient.Email)
}
