package services

import (
	"context"
	"testing"
	"time"

	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/realtime"
	"github.com/meinhoongagan/medicnote/repository"
	"github.com/meinhoongagan/medicnote/utils"
	"github.com/stretchr/testify/require"
)

const testWindow = 20 * time.Millisecond

type testEnv struct {
	store         *repository.Store
	feed          *realtime.MemoryFeed
	uploader      *utils.MemoryUploader
	audit         *AuditService
	notifications *NotificationService
	prescriptions *PrescriptionService
	pharmacies    *PharmacyService
	messaging     *MessagingService
	appointments  *AppointmentService
	records       *HealthRecordService
	accounts      *AccountService
	analytics     *AnalyticsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	feed := realtime.NewMemoryFeed()
	uploader := utils.NewMemoryUploader()
	audit := NewAuditService(store.SystemLogs)
	notifications := NewNotificationService(store.Notifications, feed, testWindow)
	return &testEnv{
		store:         store,
		feed:          feed,
		uploader:      uploader,
		audit:         audit,
		notifications: notifications,
		prescriptions: NewPrescriptionService(PrescriptionDeps{
			Store:         store,
			Notifications: notifications,
			Audit:         audit,
			Uploader:      uploader,
			Feed:          feed,
		}),
		pharmacies:   NewPharmacyService(store, audit, feed),
		messaging:    NewMessagingService(store, feed, testWindow),
		appointments: NewAppointmentService(store, notifications, feed),
		records:      NewHealthRecordService(store.HealthRecords, uploader, feed),
		accounts:     NewAccountService(store.Profiles, audit, []byte("test-secret"), time.Hour),
		analytics:    NewAnalyticsService(store),
	}
}

func (e *testEnv) register(t *testing.T, role models.Role, email string) Actor {
	t.Helper()
	in := RegisterInput{Email: email, Password: "secret123", FullName: "User " + email, Role: role}
	if role == models.RoleDoctor {
		in.Specialization = "Cardiology"
	}
	var (
		p   *models.Profile
		err error
	)
	if role == models.RoleAdmin {
		p, err = e.accounts.CreateAdmin(context.Background(), email, in.Password, in.FullName)
	} else {
		p, err = e.accounts.Register(context.Background(), in)
	}
	require.NoError(t, err)
	return Actor{ID: p.ID, Role: p.Role}
}

func (e *testEnv) pharmacy(t *testing.T, name, zip string) *models.Pharmacy {
	t.Helper()
	p, err := e.pharmacies.Register(context.Background(), Actor{Role: models.RolePharmacist}, &models.Pharmacy{
		Name:    name,
		Address: "1 Main St",
		ZipCode: &zip,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) prescribe(t *testing.T, doctor, patient Actor, diagnosis string) *models.Prescription {
	t.Helper()
	p, err := e.prescriptions.Create(context.Background(), CreatePrescriptionInput{
		DoctorID:    doctor.ID,
		PatientID:   patient.ID,
		Diagnosis:   diagnosis,
		Medications: []models.Medication{{Name: "Lisinopril", Dosage: "10mg", Frequency: "daily"}},
	})
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string { return &s }
