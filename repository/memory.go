package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/models"
)

// memDB is the shared state behind the in-memory repositories. Rows are
// stored by value and copied on the way in and out.
type memDB struct {
	mu   sync.RWMutex
	last time.Time

	profiles      map[string]models.Profile
	doctors       map[string]models.Doctor
	patients      map[string]models.Patient
	pharmacies    map[string]models.Pharmacy
	prescriptions map[string]models.Prescription
	logs          []models.FulfillmentLog
	appointments  map[string]models.Appointment
	records       []models.HealthRecord
	messages      []models.Message
	notifications map[string]models.Notification
	systemLogs    []models.SystemLog
}

// NewMemoryStore returns a Store that keeps every table in process memory.
func NewMemoryStore() *Store {
	db := &memDB{
		profiles:      make(map[string]models.Profile),
		doctors:       make(map[string]models.Doctor),
		patients:      make(map[string]models.Patient),
		pharmacies:    make(map[string]models.Pharmacy),
		prescriptions: make(map[string]models.Prescription),
		appointments:  make(map[string]models.Appointment),
		notifications: make(map[string]models.Notification),
	}
	return &Store{
		Profiles:      &memProfiles{db},
		Pharmacies:    &memPharmacies{db},
		Prescriptions: &memPrescriptions{db},
		Appointments:  &memAppointments{db},
		HealthRecords: &memHealthRecords{db},
		Messages:      &memMessages{db},
		Notifications: &memNotifications{db},
		SystemLogs:    &memSystemLogs{db},
		Counter:       &memCounter{db},
	}
}

// now is strictly increasing so insertion order survives timestamp sorts.
// Callers must hold the write lock.
func (db *memDB) now() time.Time {
	t := time.Now()
	if !t.After(db.last) {
		t = db.last.Add(time.Microsecond)
	}
	db.last = t
	return t
}

// -- Profiles --

type memProfiles struct{ db *memDB }

func (r *memProfiles) CreateAccount(_ context.Context, acct Account) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p := acct.Profile
	for _, existing := range r.db.profiles {
		if strings.EqualFold(existing.Email, p.Email) {
			return fmt.Errorf("insert profile: email %s taken: %w", p.Email, errs.ErrConflict)
		}
	}
	_ = p.BeforeCreate(nil)
	p.CreatedAt = r.db.now()
	p.UpdatedAt = p.CreatedAt
	r.db.profiles[p.ID] = *p

	if d := acct.Doctor; d != nil {
		d.ID = p.ID
		d.CreatedAt = p.CreatedAt
		d.UpdatedAt = p.CreatedAt
		stored := *d
		stored.Profile = nil
		r.db.doctors[d.ID] = stored
	}
	if pt := acct.Patient; pt != nil {
		pt.ID = p.ID
		pt.CreatedAt = p.CreatedAt
		pt.UpdatedAt = p.CreatedAt
		stored := *pt
		stored.Profile = nil
		r.db.patients[pt.ID] = stored
	}
	return nil
}

func (r *memProfiles) GetByID(_ context.Context, id string) (*models.Profile, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.profiles[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &p, nil
}

func (r *memProfiles) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, p := range r.db.profiles {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *memProfiles) GetDoctor(_ context.Context, id string) (*models.Doctor, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	d, ok := r.db.doctors[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if p, ok := r.db.profiles[id]; ok {
		d.Profile = &p
	}
	return &d, nil
}

func (r *memProfiles) ListDoctors(_ context.Context) ([]models.Doctor, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]models.Doctor, 0, len(r.db.doctors))
	for id, d := range r.db.doctors {
		if p, ok := r.db.profiles[id]; ok {
			d.Profile = &p
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Specialization != out[j].Specialization {
			return out[i].Specialization < out[j].Specialization
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// -- Pharmacies --

type memPharmacies struct{ db *memDB }

func (r *memPharmacies) Create(_ context.Context, p *models.Pharmacy) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_ = p.BeforeCreate(nil)
	p.CreatedAt = r.db.now()
	r.db.pharmacies[p.ID] = *p
	return nil
}

func (r *memPharmacies) GetByID(_ context.Context, id string) (*models.Pharmacy, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.pharmacies[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &p, nil
}

func (r *memPharmacies) Search(_ context.Context, zip string) ([]models.Pharmacy, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]models.Pharmacy, 0)
	for _, p := range r.db.pharmacies {
		if zip != "" && (p.ZipCode == nil || *p.ZipCode != zip) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// -- Prescriptions --

type memPrescriptions struct{ db *memDB }

func (r *memPrescriptions) Create(_ context.Context, p *models.Prescription) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_ = p.BeforeCreate(nil)
	p.CreatedAt = r.db.now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	stored.Pharmacy = nil
	stored.Medications = append([]models.Medication(nil), p.Medications...)
	r.db.prescriptions[p.ID] = stored
	return nil
}

func (r *memPrescriptions) load(p models.Prescription) models.Prescription {
	p.Medications = append([]models.Medication(nil), p.Medications...)
	if p.PharmacyID != nil {
		if ph, ok := r.db.pharmacies[*p.PharmacyID]; ok {
			p.Pharmacy = &ph
		}
	}
	return p
}

func (r *memPrescriptions) GetByID(_ context.Context, id string) (*models.Prescription, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.prescriptions[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	p = r.load(p)
	return &p, nil
}

func (r *memPrescriptions) List(_ context.Context, f PrescriptionFilter) ([]models.Prescription, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]models.Prescription, 0)
	for _, p := range r.db.prescriptions {
		switch {
		case f.DoctorID != "" && p.DoctorID != f.DoctorID:
			continue
		case f.PatientID != "" && p.PatientID != f.PatientID:
			continue
		case f.PharmacyID != "" && (p.PharmacyID == nil || *p.PharmacyID != f.PharmacyID):
			continue
		case f.Unassigned && p.PharmacyID != nil:
			continue
		case f.FulfillmentStatus != "" && p.FulfillmentStatus != f.FulfillmentStatus:
			continue
		}
		out = append(out, r.load(p))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DateIssued.Equal(out[j].DateIssued) {
			return out[i].DateIssued.After(out[j].DateIssued)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memPrescriptions) UpdateStatus(_ context.Context, id string, from, to models.ClinicalStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.prescriptions[id]
	if !ok {
		return errs.ErrNotFound
	}
	if p.Status != from {
		return errs.ErrConflict
	}
	p.Status = to
	p.UpdatedAt = r.db.now()
	r.db.prescriptions[id] = p
	return nil
}

func (r *memPrescriptions) SetPDFURL(_ context.Context, id, url string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.prescriptions[id]
	if !ok {
		return errs.ErrNotFound
	}
	p.PDFURL = &url
	p.UpdatedAt = r.db.now()
	r.db.prescriptions[id] = p
	return nil
}

func (r *memPrescriptions) ApplyFulfillment(_ context.Context, change models.FulfillmentChange) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.prescriptions[change.PrescriptionID]
	if !ok {
		return errs.ErrNotFound
	}
	if p.FulfillmentStatus != change.From {
		return errs.ErrConflict
	}
	p.FulfillmentStatus = change.To
	if change.PharmacyID != nil {
		id := *change.PharmacyID
		p.PharmacyID = &id
	}
	if change.Notes != nil {
		notes := *change.Notes
		p.FulfillmentNotes = &notes
	}
	p.UpdatedAt = r.db.now()
	r.db.prescriptions[p.ID] = p

	if change.Log != nil {
		_ = change.Log.BeforeCreate(nil)
		change.Log.CreatedAt = p.UpdatedAt
		r.db.logs = append(r.db.logs, *change.Log)
	}
	return nil
}

func (r *memPrescriptions) ListFulfillmentLogs(_ context.Context, prescriptionID string) ([]models.FulfillmentLog, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]models.FulfillmentLog, 0)
	for _, l := range r.db.logs {
		if l.PrescriptionID == prescriptionID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memPrescriptions) IssueDates(_ context.Context) ([]time.Time, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]time.Time, 0, len(r.db.prescriptions))
	for _, p := range r.db.prescriptions {
		out = append(out, p.DateIssued)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (r *memPrescriptions) CountByFulfillment(_ context.Context) (map[models.FulfillmentStatus]int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make(map[models.FulfillmentStatus]int64)
	for _, p := range r.db.prescriptions {
		out[p.FulfillmentStatus]++
	}
	return out, nil
}

// -- Appointments --

type memAppointments struct{ db *memDB }

func (r *memAppointments) Create(_ context.Context, a *models.Appointment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a.ApplyDefaults()
	a.CreatedAt = r.db.now()
	a.UpdatedAt = a.CreatedAt
	r.db.appointments[a.ID] = *a
	return nil
}

func (r *memAppointments) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	a, ok := r.db.appointments[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &a, nil
}

func (r *memAppointments) List(_ context.Context, f AppointmentFilter) ([]models.Appointment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]models.Appointment, 0)
	for _, a := range r.db.appointments {
		switch {
		case f.PatientID != "" && a.PatientID != f.PatientID:
			continue
		case f.DoctorID != "" && a.DoctorID != f.DoctorID:
			continue
		case len(f.Statuses) > 0 && !containsStatus(f.Statuses, a.Status):
			continue
		case !f.From.IsZero() && a.AppointmentDate.Before(f.From):
			continue
		case !f.To.IsZero() && a.AppointmentDate.After(f.To):
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].AppointmentDate.Equal(out[j].AppointmentDate) {
			return out[i].AppointmentDate.Before(out[j].AppointmentDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func containsStatus(statuses []models.AppointmentStatus, s models.AppointmentStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (r *memAppointments) UpdateStatus(_ context.Context, id string, from, to models.AppointmentStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.appointments[id]
	if !ok {
		return errs.ErrNotFound
	}
	if a.Status != from {
		return errs.ErrConflict
	}
	a.Status = to
	a.UpdatedAt = r.db.now()
	r.db.appointments[id] = a
	return nil
}

// -- Health records --

type memHealthRecords struct{ db *memDB }

func (r *memHealthRecords) Create(_ context.Context, rec *models.HealthRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_ = rec.BeforeCreate(nil)
	rec.CreatedAt = r.db.now()
	rec.UpdatedAt = rec.CreatedAt
	r.db.records = append(r.db.records, *rec)
	return nil
}

func (r *memHealthRecords) ListByPatient(_ context.Context, patientID string) ([]models.HealthRecord, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]models.HealthRecord, 0)
	for _, rec := range r.db.records {
		if rec.PatientID == patientID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedDate.After(out[j].RecordedDate)
	})
	return out, nil
}

// -- Messages --

type memMessages struct{ db *memDB }

func (r *memMessages) Create(_ context.Context, m *models.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_ = m.BeforeCreate(nil)
	m.CreatedAt = r.db.now()
	r.db.messages = append(r.db.messages, *m)
	return nil
}

func (r *memMessages) ListThread(_ context.Context, a, b string, scope models.ThreadScope) ([]models.Message, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]models.Message, 0)
	for _, m := range r.db.messages {
		pair := (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
		if !pair {
			continue
		}
		if scope.AppointmentID != nil && (m.AppointmentID == nil || *m.AppointmentID != *scope.AppointmentID) {
			continue
		}
		if scope.PrescriptionID != nil && (m.PrescriptionID == nil || *m.PrescriptionID != *scope.PrescriptionID) {
			continue
		}
		out = append(out, m)
	}
	// messages are appended in creation order, already ascending
	return out, nil
}

// -- Notifications --

type memNotifications struct{ db *memDB }

func (r *memNotifications) Create(_ context.Context, n *models.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_ = n.BeforeCreate(nil)
	n.CreatedAt = r.db.now()
	r.db.notifications[n.ID] = *n
	return nil
}

func (r *memNotifications) GetByID(_ context.Context, id string) (*models.Notification, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	n, ok := r.db.notifications[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &n, nil
}

func (r *memNotifications) ListByUser(_ context.Context, userID string) ([]models.Notification, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]models.Notification, 0)
	for _, n := range r.db.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memNotifications) MarkRead(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notifications[id]
	if !ok {
		return errs.ErrNotFound
	}
	n.Read = true
	r.db.notifications[id] = n
	return nil
}

func (r *memNotifications) MarkAllRead(_ context.Context, userID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var changed int64
	for id, n := range r.db.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			r.db.notifications[id] = n
			changed++
		}
	}
	return changed, nil
}

func (r *memNotifications) Delete(_ context.Context, id string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.notifications[id]; !ok {
		return 0, nil
	}
	delete(r.db.notifications, id)
	return 1, nil
}

func (r *memNotifications) CountUnread(_ context.Context, userID string) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var n int64
	for _, notification := range r.db.notifications {
		if notification.UserID == userID && !notification.Read {
			n++
		}
	}
	return n, nil
}

// -- System logs --

type memSystemLogs struct{ db *memDB }

func (r *memSystemLogs) Create(_ context.Context, l *models.SystemLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_ = l.BeforeCreate(nil)
	l.CreatedAt = r.db.now()
	r.db.systemLogs = append(r.db.systemLogs, *l)
	return nil
}

func (r *memSystemLogs) ListRecent(_ context.Context, limit int) ([]models.SystemLog, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if limit <= 0 || limit > len(r.db.systemLogs) {
		limit = len(r.db.systemLogs)
	}
	out := make([]models.SystemLog, 0, limit)
	for i := len(r.db.systemLogs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.db.systemLogs[i])
	}
	return out, nil
}

// -- Counts --

type memCounter struct{ db *memDB }

func (r *memCounter) Count(_ context.Context, table string) (int64, error) {
	if !countable[table] {
		return 0, errs.Invalid("table", "%q cannot be counted", table)
	}
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	switch table {
	case models.TableProfiles:
		return int64(len(r.db.profiles)), nil
	case models.TableDoctors:
		return int64(len(r.db.doctors)), nil
	case models.TablePatients:
		return int64(len(r.db.patients)), nil
	case models.TablePharmacies:
		return int64(len(r.db.pharmacies)), nil
	case models.TablePrescriptions:
		return int64(len(r.db.prescriptions)), nil
	case models.TableAppointments:
		return int64(len(r.db.appointments)), nil
	case models.TableHealthRecords:
		return int64(len(r.db.records)), nil
	case models.TableMessages:
		return int64(len(r.db.messages)), nil
	case models.TableNotifications:
		return int64(len(r.db.notifications)), nil
	case models.TableSystemLogs:
		return int64(len(r.db.systemLogs)), nil
	case models.TableFulfillmentLog:
		return int64(len(r.db.logs)), nil
	}
	return 0, nil
}
