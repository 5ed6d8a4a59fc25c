package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/realtime"
	"github.com/meinhoongagan/medicnote/repository"
	"github.com/meinhoongagan/medicnote/utils"
)

type AppointmentService struct {
	appointments  repository.Appointments
	profiles      repository.Profiles
	notifications *NotificationService
	feed          realtime.Feed
	now           func() time.Time
}

func NewAppointmentService(store *repository.Store, notifications *NotificationService, feed realtime.Feed) *AppointmentService {
	return &AppointmentService{
		appointments:  store.Appointments,
		profiles:      store.Profiles,
		notifications: notifications,
		feed:          feed,
		now:           time.Now,
	}
}

type BookAppointmentInput struct {
	PatientID       string    `json:"-"`
	DoctorID        string    `json:"doctor_id"`
	AppointmentDate time.Time `json:"appointment_date"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           *string   `json:"notes"`
}

var activeAppointmentStatuses = []models.AppointmentStatus{models.AppointmentScheduled, models.AppointmentConfirmed}

func appointmentEvent(op realtime.Op, a *models.Appointment) realtime.Event {
	return realtime.NewEvent(models.TableAppointments, op, a.ID, map[string]string{
		"patient_id": a.PatientID,
		"doctor_id":  a.DoctorID,
		"status":     string(a.Status),
	})
}

// Book schedules a visit with a doctor. The slot must be in the future and
// must not overlap another active appointment of that doctor.
func (s *AppointmentService) Book(ctx context.Context, in BookAppointmentInput) (*models.Appointment, error) {
	switch {
	case in.PatientID == "":
		return nil, errs.Required("patient_id")
	case in.DoctorID == "":
		return nil, errs.Required("doctor_id")
	case in.AppointmentDate.IsZero():
		return nil, errs.Required("appointment_date")
	case in.AppointmentDate.Before(s.now()):
		return nil, errs.Invalid("appointment_date", "must not be in the past")
	case in.DurationMinutes < 0:
		return nil, errs.Invalid("duration_minutes", "must be positive")
	}
	if _, err := s.profiles.GetDoctor(ctx, in.DoctorID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Invalid("doctor_id", "unknown doctor %s", in.DoctorID)
		}
		return nil, err
	}

	a := &models.Appointment{
		PatientID:       in.PatientID,
		DoctorID:        in.DoctorID,
		AppointmentDate: in.AppointmentDate,
		DurationMinutes: in.DurationMinutes,
		Status:          models.AppointmentScheduled,
		Notes:           in.Notes,
	}
	a.ApplyDefaults()

	duration := time.Duration(a.DurationMinutes) * time.Minute
	// look back a day so long appointments that started earlier still count
	existing, err := s.appointments.List(ctx, repository.AppointmentFilter{
		DoctorID: a.DoctorID,
		Statuses: activeAppointmentStatuses,
		From:     a.AppointmentDate.Add(-24 * time.Hour),
		To:       a.AppointmentDate.Add(duration),
	})
	if err != nil {
		return nil, err
	}
	if !utils.CheckAvailability(existing, a.AppointmentDate, duration) {
		return nil, fmt.Errorf("doctor is not available at %s: %w", a.AppointmentDate.Format(time.RFC3339), errs.ErrConflict)
	}

	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}
	publish(ctx, s.feed, appointmentEvent(realtime.OpInsert, a))
	s.notifications.notifyQuietly(ctx, a.DoctorID, "New appointment",
		fmt.Sprintf("A patient booked an appointment on %s.", a.AppointmentDate.Format("Jan 2, 2006 15:04")), models.NotificationInfo)
	return a, nil
}

func (s *AppointmentService) ListForPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	return s.appointments.List(ctx, repository.AppointmentFilter{PatientID: patientID})
}

func (s *AppointmentService) ListForDoctor(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	return s.appointments.List(ctx, repository.AppointmentFilter{DoctorID: doctorID})
}

func (s *AppointmentService) ListFor(ctx context.Context, actor Actor) ([]models.Appointment, error) {
	switch actor.Role {
	case models.RolePatient:
		return s.ListForPatient(ctx, actor.ID)
	case models.RoleDoctor:
		return s.ListForDoctor(ctx, actor.ID)
	case models.RoleAdmin:
		return s.appointments.List(ctx, repository.AppointmentFilter{})
	}
	return nil, errs.ErrForbidden
}

// UpdateStatus moves an appointment along its lifecycle. Only the two
// participants may change it and patients may only cancel.
func (s *AppointmentService) UpdateStatus(ctx context.Context, actor Actor, id string, status models.AppointmentStatus) (*models.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.ID == a.DoctorID:
	case actor.ID == a.PatientID:
		if status != models.AppointmentCancelled {
			return nil, errs.ErrForbidden
		}
	default:
		return nil, errs.ErrForbidden
	}
	if err := a.CheckTransition(status); err != nil {
		return nil, err
	}
	if err := s.appointments.UpdateStatus(ctx, id, a.Status, status); err != nil {
		return nil, err
	}
	a.Status = status
	publish(ctx, s.feed, appointmentEvent(realtime.OpUpdate, a))

	other := a.PatientID
	if actor.ID == a.PatientID {
		other = a.DoctorID
	}
	typ := models.NotificationInfo
	if status == models.AppointmentCancelled {
		typ = models.NotificationWarning
	}
	s.notifications.notifyQuietly(ctx, other, fmt.Sprintf("Appointment %s", status),
		fmt.Sprintf("Your appointment on %s is now %s.", a.AppointmentDate.Format("Jan 2, 2006 15:04"), status), typ)
	return a, nil
}

func (s *AppointmentService) Cancel(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	return s.UpdateStatus(ctx, actor, id, models.AppointmentCancelled)
}

// Upcoming lists active appointments starting inside [from, to].
func (s *AppointmentService) Upcoming(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	return s.appointments.List(ctx, repository.AppointmentFilter{
		Statuses: activeAppointmentStatuses,
		From:     from,
		To:       to,
	})
}
