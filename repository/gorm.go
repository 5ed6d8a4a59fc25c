package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/models"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes translated by wrap.
const (
	pgUniqueViolation           = "23505"
	pgInvalidTextRepresentation = "22P02"
)

// NewGormStore wires every repository to the same connection pool.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Profiles:      &gormProfiles{db: db},
		Pharmacies:    &gormPharmacies{db: db},
		Prescriptions: &gormPrescriptions{db: db},
		Appointments:  &gormAppointments{db: db},
		HealthRecords: &gormHealthRecords{db: db},
		Messages:      &gormMessages{db: db},
		Notifications: &gormNotifications{db: db},
		SystemLogs:    &gormSystemLogs{db: db},
		Counter:       &gormCounter{db: db},
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", op, errs.ErrConflict)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, errs.ErrConflict)
		case pgInvalidTextRepresentation:
			return errs.Invalid("id", "malformed identifier in %s", op)
		}
	}
	return errs.Remote(op, err)
}

// validIDs reports whether every non-empty id is a UUID. Ids that are not
// can never match a uuid column, and Postgres rejects them outright.
func validIDs(ids ...string) bool {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

func validID(id string) bool {
	return id != "" && validIDs(id)
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// -- Profiles --

type gormProfiles struct{ db *gorm.DB }

func (r *gormProfiles) CreateAccount(ctx context.Context, acct Account) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(acct.Profile).Error; err != nil {
			return wrap("insert profile", err)
		}
		if acct.Doctor != nil {
			acct.Doctor.ID = acct.Profile.ID
			if err := tx.Omit("Profile").Create(acct.Doctor).Error; err != nil {
				return wrap("insert doctor", err)
			}
		}
		if acct.Patient != nil {
			acct.Patient.ID = acct.Profile.ID
			if err := tx.Omit("Profile").Create(acct.Patient).Error; err != nil {
				return wrap("insert patient", err)
			}
		}
		return nil
	})
}

func (r *gormProfiles) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	if !validID(id) {
		return nil, errs.ErrNotFound
	}
	var p models.Profile
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, wrap("get profile", err)
	}
	return &p, nil
}

func (r *gormProfiles) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&p).Error; err != nil {
		return nil, wrap("get profile by email", err)
	}
	return &p, nil
}

func (r *gormProfiles) GetDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	if !validID(id) {
		return nil, errs.ErrNotFound
	}
	var d models.Doctor
	if err := r.db.WithContext(ctx).Preload("Profile").First(&d, "id = ?", id).Error; err != nil {
		return nil, wrap("get doctor", err)
	}
	return &d, nil
}

func (r *gormProfiles) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	var doctors []models.Doctor
	err := r.db.WithContext(ctx).Preload("Profile").Order("specialization ASC").Find(&doctors).Error
	return doctors, wrap("list doctors", err)
}

// -- Pharmacies --

type gormPharmacies struct{ db *gorm.DB }

func (r *gormPharmacies) Create(ctx context.Context, p *models.Pharmacy) error {
	return wrap("insert pharmacy", r.db.WithContext(ctx).Create(p).Error)
}

func (r *gormPharmacies) GetByID(ctx context.Context, id string) (*models.Pharmacy, error) {
	if !validID(id) {
		return nil, errs.ErrNotFound
	}
	var p models.Pharmacy
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, wrap("get pharmacy", err)
	}
	return &p, nil
}

func (r *gormPharmacies) Search(ctx context.Context, zip string) ([]models.Pharmacy, error) {
	q := r.db.WithContext(ctx).Model(&models.Pharmacy{})
	if zip != "" {
		q = q.Where("zip_code = ?", zip)
	}
	var pharmacies []models.Pharmacy
	err := q.Order("name ASC").Find(&pharmacies).Error
	return pharmacies, wrap("search pharmacies", err)
}

// -- Prescriptions --

type gormPrescriptions struct{ db *gorm.DB }

func (r *gormPrescriptions) Create(ctx context.Context, p *models.Prescription) error {
	return wrap("insert prescription", r.db.WithContext(ctx).Omit("Pharmacy").Create(p).Error)
}

func (r *gormPrescriptions) GetByID(ctx context.Context, id string) (*models.Prescription, error) {
	if !validID(id) {
		return nil, errs.ErrNotFound
	}
	var p models.Prescription
	if err := r.db.WithContext(ctx).Preload("Pharmacy").First(&p, "id = ?", id).Error; err != nil {
		return nil, wrap("get prescription", err)
	}
	return &p, nil
}

func (r *gormPrescriptions) List(ctx context.Context, f PrescriptionFilter) ([]models.Prescription, error) {
	if !validIDs(f.DoctorID, f.PatientID, f.PharmacyID) {
		return []models.Prescription{}, nil
	}
	q := r.db.WithContext(ctx).Model(&models.Prescription{}).Preload("Pharmacy")
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.PharmacyID != "" {
		q = q.Where("pharmacy_id = ?", f.PharmacyID)
	}
	if f.Unassigned {
		q = q.Where("pharmacy_id IS NULL")
	}
	if f.FulfillmentStatus != "" {
		q = q.Where("fulfillment_status = ?", f.FulfillmentStatus)
	}
	var prescriptions []models.Prescription
	err := q.Order("date_issued DESC").Find(&prescriptions).Error
	return prescriptions, wrap("list prescriptions", err)
}

func (r *gormPrescriptions) UpdateStatus(ctx context.Context, id string, from, to models.ClinicalStatus) error {
	if !validID(id) {
		return errs.ErrNotFound
	}
	res := r.db.WithContext(ctx).Model(&models.Prescription{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return wrap("update prescription status", res.Error)
	}
	if res.RowsAffected == 0 {
		return missOrConflict(r.db.WithContext(ctx), id)
	}
	return nil
}

func (r *gormPrescriptions) SetPDFURL(ctx context.Context, id, url string) error {
	if !validID(id) {
		return errs.ErrNotFound
	}
	res := r.db.WithContext(ctx).Model(&models.Prescription{}).Where("id = ?", id).Update("pdf_url", url)
	if res.Error != nil {
		return wrap("update prescription pdf", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *gormPrescriptions) ApplyFulfillment(ctx context.Context, change models.FulfillmentChange) error {
	if !validID(change.PrescriptionID) {
		return errs.ErrNotFound
	}
	if change.PharmacyID != nil && !validID(*change.PharmacyID) {
		return errs.Invalid("pharmacy_id", "unknown pharmacy %s", *change.PharmacyID)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		patch := map[string]interface{}{"fulfillment_status": change.To}
		if change.PharmacyID != nil {
			patch["pharmacy_id"] = *change.PharmacyID
		}
		if change.Notes != nil {
			patch["fulfillment_notes"] = *change.Notes
		}

		res := tx.Model(&models.Prescription{}).
			Where("id = ? AND fulfillment_status = ?", change.PrescriptionID, change.From).
			Updates(patch)
		if res.Error != nil {
			return wrap("update fulfillment status", res.Error)
		}
		if res.RowsAffected == 0 {
			return missOrConflict(tx, change.PrescriptionID)
		}

		if change.Log != nil {
			if err := tx.Create(change.Log).Error; err != nil {
				return wrap("insert fulfillment log", err)
			}
		}
		return nil
	})
}

// missOrConflict explains a compare-and-set that touched no row.
func missOrConflict(db *gorm.DB, id string) error {
	var n int64
	if err := db.Model(&models.Prescription{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return wrap("count prescription", err)
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return errs.ErrConflict
}

func (r *gormPrescriptions) ListFulfillmentLogs(ctx context.Context, prescriptionID string) ([]models.FulfillmentLog, error) {
	if !validIDs(prescriptionID) {
		return []models.FulfillmentLog{}, nil
	}
	var logs []models.FulfillmentLog
	err := r.db.WithContext(ctx).
		Where("prescription_id = ?", prescriptionID).
		Order("created_at ASC").Order("id ASC").
		Find(&logs).Error
	return logs, wrap("list fulfillment logs", err)
}

func (r *gormPrescriptions) IssueDates(ctx context.Context) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).Model(&models.Prescription{}).
		Order("date_issued ASC").
		Pluck("date_issued", &dates).Error
	return dates, wrap("list issue dates", err)
}

func (r *gormPrescriptions) CountByFulfillment(ctx context.Context) (map[models.FulfillmentStatus]int64, error) {
	var rows []struct {
		FulfillmentStatus models.FulfillmentStatus
		Count             int64
	}
	err := r.db.WithContext(ctx).Model(&models.Prescription{}).
		Select("fulfillment_status, COUNT(*) AS count").
		Group("fulfillment_status").
		Scan(&rows).Error
	if err != nil {
		return nil, wrap("count by fulfillment", err)
	}
	out := make(map[models.FulfillmentStatus]int64, len(rows))
	for _, row := range rows {
		out[row.FulfillmentStatus] = row.Count
	}
	return out, nil
}

// -- Appointments --

type gormAppointments struct{ db *gorm.DB }

func (r *gormAppointments) Create(ctx context.Context, a *models.Appointment) error {
	return wrap("insert appointment", r.db.WithContext(ctx).Create(a).Error)
}

func (r *gormAppointments) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	if !validID(id) {
		return nil, errs.ErrNotFound
	}
	var a models.Appointment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, wrap("get appointment", err)
	}
	return &a, nil
}

func (r *gormAppointments) List(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error) {
	if !validIDs(f.PatientID, f.DoctorID) {
		return []models.Appointment{}, nil
	}
	q := r.db.WithContext(ctx).Model(&models.Appointment{})
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if !f.From.IsZero() {
		q = q.Where("appointment_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("appointment_date <= ?", f.To)
	}
	var appointments []models.Appointment
	err := q.Order("appointment_date ASC").Find(&appointments).Error
	return appointments, wrap("list appointments", err)
}

func (r *gormAppointments) UpdateStatus(ctx context.Context, id string, from, to models.AppointmentStatus) error {
	if !validID(id) {
		return errs.ErrNotFound
	}
	res := r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return wrap("update appointment status", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.ErrConflict
	}
	return nil
}

// -- Health records --

type gormHealthRecords struct{ db *gorm.DB }

func (r *gormHealthRecords) Create(ctx context.Context, rec *models.HealthRecord) error {
	return wrap("insert health record", r.db.WithContext(ctx).Create(rec).Error)
}

func (r *gormHealthRecords) ListByPatient(ctx context.Context, patientID string) ([]models.HealthRecord, error) {
	if !validIDs(patientID) {
		return []models.HealthRecord{}, nil
	}
	var records []models.HealthRecord
	err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("recorded_date DESC").Find(&records).Error
	return records, wrap("list health records", err)
}

// -- Messages --

type gormMessages struct{ db *gorm.DB }

func (r *gormMessages) Create(ctx context.Context, m *models.Message) error {
	return wrap("insert message", r.db.WithContext(ctx).Create(m).Error)
}

func (r *gormMessages) ListThread(ctx context.Context, a, b string, scope models.ThreadScope) ([]models.Message, error) {
	if !validIDs(a, b, strOrEmpty(scope.AppointmentID), strOrEmpty(scope.PrescriptionID)) {
		return []models.Message{}, nil
	}
	db := r.db.WithContext(ctx)
	// the pair condition is a group so scope filters AND with all of it
	pair := db.Where("sender_id = ? AND receiver_id = ?", a, b).
		Or("sender_id = ? AND receiver_id = ?", b, a)
	q := db.Where(pair)
	if scope.AppointmentID != nil {
		q = q.Where("appointment_id = ?", *scope.AppointmentID)
	}
	if scope.PrescriptionID != nil {
		q = q.Where("prescription_id = ?", *scope.PrescriptionID)
	}
	var messages []models.Message
	err := q.Order("created_at ASC").Order("id ASC").Find(&messages).Error
	return messages, wrap("list thread", err)
}

// -- Notifications --

type gormNotifications struct{ db *gorm.DB }

func (r *gormNotifications) Create(ctx context.Context, n *models.Notification) error {
	return wrap("insert notification", r.db.WithContext(ctx).Create(n).Error)
}

func (r *gormNotifications) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	if !validID(id) {
		return nil, errs.ErrNotFound
	}
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, wrap("get notification", err)
	}
	return &n, nil
}

func (r *gormNotifications) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	if !validIDs(userID) {
		return []models.Notification{}, nil
	}
	var notifications []models.Notification
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&notifications).Error
	return notifications, wrap("list notifications", err)
}

func (r *gormNotifications) MarkRead(ctx context.Context, id string) error {
	if !validID(id) {
		return errs.ErrNotFound
	}
	res := r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return wrap("mark notification read", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *gormNotifications) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if !validIDs(userID) {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return res.RowsAffected, wrap("mark all notifications read", res.Error)
}

func (r *gormNotifications) Delete(ctx context.Context, id string) (int64, error) {
	if !validID(id) {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Notification{})
	return res.RowsAffected, wrap("delete notification", res.Error)
}

func (r *gormNotifications) CountUnread(ctx context.Context, userID string) (int64, error) {
	if !validIDs(userID) {
		return 0, nil
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&n).Error
	return n, wrap("count unread notifications", err)
}

// -- System logs --

type gormSystemLogs struct{ db *gorm.DB }

func (r *gormSystemLogs) Create(ctx context.Context, l *models.SystemLog) error {
	return wrap("insert system log", r.db.WithContext(ctx).Create(l).Error)
}

func (r *gormSystemLogs) ListRecent(ctx context.Context, limit int) ([]models.SystemLog, error) {
	var logs []models.SystemLog
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, wrap("list system logs", err)
}

// -- Counts --

type gormCounter struct{ db *gorm.DB }

func (r *gormCounter) Count(ctx context.Context, table string) (int64, error) {
	if !countable[table] {
		return 0, errs.Invalid("table", "%q cannot be counted", table)
	}
	var n int64
	err := r.db.WithContext(ctx).Table(table).Count(&n).Error
	return n, wrap("count "+table, err)
}
