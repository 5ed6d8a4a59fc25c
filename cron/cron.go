package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meinhoongagan/medicnote/logger"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/repository"
	"github.com/meinhoongagan/medicnote/services"
	"github.com/meinhoongagan/medicnote/utils"
	"github.com/robfig/cron/v3"
)

// Appointments starting between these offsets from now get a reminder.
const (
	reminderLead  = 55 * time.Minute
	reminderLimit = 65 * time.Minute
)

// Reminders notifies and emails patients about appointments starting in
// about one hour.
type Reminders struct {
	appointments  *services.AppointmentService
	profiles      repository.Profiles
	notifications *services.NotificationService
	mailer        utils.Mailer
	now           func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time // appointment id -> appointment start
}

func NewReminders(appointments *services.AppointmentService, profiles repository.Profiles, notifications *services.NotificationService, mailer utils.Mailer) *Reminders {
	return &Reminders{
		appointments:  appointments,
		profiles:      profiles,
		notifications: notifications,
		mailer:        mailer,
		now:           time.Now,
		sent:          make(map[string]time.Time),
	}
}

// Start schedules the reminder job and returns the running scheduler.
// Callers stop it with Stop().
func Start(spec string, r *Reminders) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { r.Run(context.Background()) }); err != nil {
		return nil, fmt.Errorf("add reminder job %q: %w", spec, err)
	}
	c.Start()
	logger.Log.Info().Str("schedule", spec).Msg("cron job scheduler started for appointment reminders")
	return c, nil
}

// Run sends reminders for the current window and returns how many were
// sent. The window is wider than the default schedule interval, so
// appointments already reminded are skipped.
func (r *Reminders) Run(ctx context.Context) int {
	now := r.now()
	due, err := r.appointments.Upcoming(ctx, now.Add(reminderLead), now.Add(reminderLimit))
	if err != nil {
		logger.Log.Error().Err(err).Msg("fetch appointments for reminders")
		return 0
	}
	r.prune(now)

	sent := 0
	for i := range due {
		a := &due[i]
		if !r.claim(a) {
			continue
		}
		if err := r.remind(ctx, a); err != nil {
			logger.Log.Warn().Err(err).Str("appointment_id", a.ID).Msg("send appointment reminder")
			r.release(a.ID)
			continue
		}
		sent++
	}
	if sent > 0 {
		logger.Log.Info().Int("sent", sent).Msg("appointment reminders sent")
	}
	return sent
}

func (r *Reminders) claim(a *models.Appointment) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if at, ok := r.sent[a.ID]; ok && at.Equal(a.AppointmentDate) {
		return false
	}
	r.sent[a.ID] = a.AppointmentDate
	return true
}

func (r *Reminders) release(id string) {
	r.mu.Lock()
	delete(r.sent, id)
	r.mu.Unlock()
}

// prune forgets appointments that have already started.
func (r *Reminders) prune(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, at := range r.sent {
		if at.Before(now) {
			delete(r.sent, id)
		}
	}
}

func (r *Reminders) remind(ctx context.Context, a *models.Appointment) error {
	patient, err := r.profiles.GetByID(ctx, a.PatientID)
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}
	doctor := "your doctor"
	if d, err := r.profiles.GetByID(ctx, a.DoctorID); err == nil {
		doctor = d.FullName
	}

	when := a.AppointmentDate.Format("2006-01-02 15:04")
	if _, err := r.notifications.Notify(ctx, patient.ID, "Appointment reminder",
		fmt.Sprintf("Your appointment with %s starts at %s.", doctor, when), models.NotificationInfo); err != nil {
		return err
	}

	if r.mailer == nil {
		return nil
	}
	subject := "Reminder: Upcoming Appointment"
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>This is a reminder for your upcoming appointment scheduled in one hour.</p>
		<p><strong>Details:</strong></p>
		<ul>
			<li><strong>Doctor:</strong> %s</li>
			<li><strong>Start Time:</strong> %s</li>
			<li><strong>End Time:</strong> %s</li>
			<li><strong>Status:</strong> %s</li>
		</ul>
		<p>Please arrive on time. If you need to reschedule or cancel, contact us as soon as possible.</p>
		<p>Best regards,</p>
		<p>MedicNote</p>
	`, patient.FullName, doctor, when, a.End().Format("2006-01-02 15:04"), a.Status)
	if err := r.mailer.Send(patient.Email, subject, body); err != nil {
		logger.Log.Warn().Err(err).Str("appointment_id", a.ID).Msg("send reminder email")
	}
	return nil
}
