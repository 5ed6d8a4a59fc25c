// Package repository is the data-access layer: one typed repository per
// table, backed either by GORM/Postgres or by an in-memory store.
package repository

import (
	"context"
	"time"

	"github.com/meinhoongagan/medicnote/models"
)

// Account is a profile together with its role row. At most one of Doctor
// and Patient is set; admins carry neither.
type Account struct {
	Profile *models.Profile
	Doctor  *models.Doctor
	Patient *models.Patient
}

type Profiles interface {
	// CreateAccount inserts the profile and its role row as one unit. A
	// taken email fails with errs.ErrConflict and leaves nothing behind.
	CreateAccount(ctx context.Context, acct Account) error
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	GetDoctor(ctx context.Context, id string) (*models.Doctor, error)
	ListDoctors(ctx context.Context) ([]models.Doctor, error)
}

type Pharmacies interface {
	Create(ctx context.Context, p *models.Pharmacy) error
	GetByID(ctx context.Context, id string) (*models.Pharmacy, error)
	// Search filters on zip_code when zip is non-empty, ordered by name.
	Search(ctx context.Context, zip string) ([]models.Pharmacy, error)
}

type PrescriptionFilter struct {
	DoctorID   string
	PatientID  string
	PharmacyID string
	// Unassigned restricts to rows with no pharmacy.
	Unassigned        bool
	FulfillmentStatus models.FulfillmentStatus
}

type Prescriptions interface {
	Create(ctx context.Context, p *models.Prescription) error
	GetByID(ctx context.Context, id string) (*models.Prescription, error)
	// List returns matches ordered by date_issued descending.
	List(ctx context.Context, f PrescriptionFilter) ([]models.Prescription, error)
	// UpdateStatus sets the clinical status if it still equals from.
	UpdateStatus(ctx context.Context, id string, from, to models.ClinicalStatus) error
	SetPDFURL(ctx context.Context, id, url string) error
	// ApplyFulfillment performs the status compare-and-set and the log
	// insert as one unit of work.
	ApplyFulfillment(ctx context.Context, change models.FulfillmentChange) error
	ListFulfillmentLogs(ctx context.Context, prescriptionID string) ([]models.FulfillmentLog, error)
	// IssueDates returns every date_issued in ascending order.
	IssueDates(ctx context.Context) ([]time.Time, error)
	CountByFulfillment(ctx context.Context) (map[models.FulfillmentStatus]int64, error)
}

type AppointmentFilter struct {
	PatientID string
	DoctorID  string
	Statuses  []models.AppointmentStatus
	From      time.Time
	To        time.Time
}

type Appointments interface {
	Create(ctx context.Context, a *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	// List returns matches ordered by appointment_date ascending.
	List(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error)
	UpdateStatus(ctx context.Context, id string, from, to models.AppointmentStatus) error
}

type HealthRecords interface {
	Create(ctx context.Context, r *models.HealthRecord) error
	// ListByPatient orders by recorded_date descending.
	ListByPatient(ctx context.Context, patientID string) ([]models.HealthRecord, error)
}

type Messages interface {
	Create(ctx context.Context, m *models.Message) error
	// ListThread returns messages exchanged between a and b in either
	// direction, ordered by created_at ascending.
	ListThread(ctx context.Context, a, b string, scope models.ThreadScope) ([]models.Message, error)
}

type Notifications interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	// ListByUser orders by created_at descending.
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type SystemLogs interface {
	Create(ctx context.Context, l *models.SystemLog) error
	// ListRecent orders by created_at descending.
	ListRecent(ctx context.Context, limit int) ([]models.SystemLog, error)
}

var countable = map[string]bool{
	models.TableProfiles:       true,
	models.TableDoctors:        true,
	models.TablePatients:       true,
	models.TablePharmacies:     true,
	models.TablePrescriptions:  true,
	models.TableAppointments:   true,
	models.TableHealthRecords:  true,
	models.TableMessages:       true,
	models.TableNotifications:  true,
	models.TableSystemLogs:     true,
	models.TableFulfillmentLog: true,
}

type Counter interface {
	Count(ctx context.Context, table string) (int64, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Profiles      Profiles
	Pharmacies    Pharmacies
	Prescriptions Prescriptions
	Appointments  Appointments
	HealthRecords HealthRecords
	Messages      Messages
	Notifications Notifications
	SystemLogs    SystemLogs
	Counter       Counter
}
