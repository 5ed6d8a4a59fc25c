package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/config"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/realtime"
	"github.com/meinhoongagan/medicnote/repository"
	"github.com/meinhoongagan/medicnote/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t        *testing.T
	app      *fiber.App
	svc      *Services
	uploader *utils.MemoryUploader
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{
		Env:            "test",
		DBDriver:       "memory",
		JWTSecret:      "test-secret",
		TokenTTL:       time.Hour,
		CORSOrigins:    "*",
		CoalesceWindow: 20 * time.Millisecond,
	}
	uploader := utils.NewMemoryUploader()
	svc := NewServices(cfg, repository.NewMemoryStore(), realtime.NewMemoryFeed(), uploader, utils.LogMailer{})
	return &harness{t: t, app: NewApp(cfg, svc), svc: svc, uploader: uploader}
}

func (h *harness) do(method, path, token string, body interface{}, out interface{}) int {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return h.send(req, token, out)
}

func (h *harness) send(req *http.Request, token string, out interface{}) int {
	h.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(h.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// signup registers an account and returns its id and session token.
func (h *harness) signup(role models.Role, email string) (string, string) {
	h.t.Helper()
	body := map[string]interface{}{
		"email":     email,
		"password":  "secret123",
		"full_name": "User " + email,
		"role":      role,
	}
	if role == models.RoleDoctor {
		body["specialization"] = "General practice"
	}
	var profile models.Profile
	require.Equal(h.t, http.StatusCreated, h.do(http.MethodPost, "/auth/register", "", body, &profile))

	var session struct {
		Token string `json:"token"`
	}
	require.Equal(h.t, http.StatusOK, h.do(http.MethodPost, "/auth/login", "",
		map[string]string{"email": email, "password": "secret123"}, &session))
	return profile.ID, session.Token
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)
	id, token := h.signup(models.RolePatient, "pat@clinic.io")

	var me models.Profile
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/auth/me", token, nil, &me))
	assert.Equal(t, id, me.ID)

	var errBody utils.ErrorResponse
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/auth/me", "", nil, &errBody))
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/auth/me", "garbage", nil, nil))

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/auth/login", "",
		map[string]string{"email": "pat@clinic.io", "password": "nope"}, &errBody))
	assert.Equal(t, "Invalid credentials", errBody.Message)

	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "pat@clinic.io", "password": "secret123", "full_name": "Again", "role": "patient",
	}, nil))
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "root@clinic.io", "password": "secret123", "full_name": "Root", "role": "admin",
	}, nil))
}

func TestPrescriptionFulfillmentOverHTTP(t *testing.T) {
	h := newHarness(t)
	_, doctor := h.signup(models.RoleDoctor, "doc@clinic.io")
	patientID, patient := h.signup(models.RolePatient, "pat@clinic.io")
	_, pharmacist := h.signup(models.RolePharmacist, "rx@pharma.io")

	rxBody := map[string]interface{}{
		"patient_id":  patientID,
		"diagnosis":   "Hypertension",
		"medications": []models.Medication{{Name: "Lisinopril", Dosage: "10mg", Frequency: "daily"}},
	}
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/prescriptions", patient, rxBody, nil))
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/prescriptions", doctor,
		map[string]interface{}{"patient_id": patientID, "diagnosis": "  "}, nil))

	var rx models.Prescription
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/prescriptions", doctor, rxBody, &rx))
	assert.Equal(t, models.FulfillmentPending, rx.FulfillmentStatus)

	var mine []models.Prescription
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/prescriptions", patient, nil, &mine))
	require.Len(t, mine, 1)

	var found []models.Prescription
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/prescriptions/search?q=lisino", doctor, nil, &found))
	assert.Len(t, found, 1)

	var ph models.Pharmacy
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/pharmacies", pharmacist,
		map[string]string{"name": "Corner Drugs", "address": "1 Main St", "zip_code": "10001"}, &ph))

	var nearby []models.Pharmacy
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/pharmacies?zip=10001", patient, nil, &nearby))
	assert.Len(t, nearby, 1)

	var claimable []models.Prescription
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/fulfillment/claimable", pharmacist, nil, &claimable))
	require.Len(t, claimable, 1)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/fulfillment/claimable", doctor, nil, nil))

	// advancing without a pharmacy is refused
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPatch, "/fulfillment/"+rx.ID+"/status", pharmacist,
		map[string]string{"status": "approved"}, nil))

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/fulfillment/"+rx.ID+"/assign", pharmacist,
		map[string]string{"pharmacy_id": ph.ID}, &rx))
	assert.Equal(t, models.FulfillmentApproved, rx.FulfillmentStatus)

	assert.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodPatch, "/fulfillment/"+rx.ID+"/status", pharmacist,
		map[string]string{"status": "delivered"}, nil))

	for _, s := range []string{"preparing", "ready"} {
		require.Equal(t, http.StatusOK, h.do(http.MethodPatch, "/fulfillment/"+rx.ID+"/status", pharmacist,
			map[string]string{"status": s, "notes": "on it"}, &rx))
	}
	assert.Equal(t, models.FulfillmentReady, rx.FulfillmentStatus)

	var history []models.FulfillmentLog
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/prescriptions/"+rx.ID+"/fulfillment", patient, nil, &history))
	require.Len(t, history, 3)
	assert.Equal(t, "Prescription assigned to pharmacy", history[0].Notes)
	assert.Equal(t, "on it", history[2].Notes)

	var count struct {
		UnreadCount int64 `json:"unread_count"`
	}
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/notifications/unread-count", patient, nil, &count))
	assert.Equal(t, int64(4), count.UnreadCount)

	var updated struct {
		Updated int64 `json:"updated"`
	}
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/notifications/read-all", patient, nil, &updated))
	assert.Equal(t, int64(4), updated.Updated)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/notifications/unread-count", patient, nil, &count))
	assert.Zero(t, count.UnreadCount)
}

func TestAttachPDFOverHTTP(t *testing.T) {
	h := newHarness(t)
	doctorID, doctor := h.signup(models.RoleDoctor, "doc@clinic.io")
	patientID, _ := h.signup(models.RolePatient, "pat@clinic.io")

	var rx models.Prescription
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/prescriptions", doctor, map[string]interface{}{
		"patient_id":  patientID,
		"diagnosis":   "Flu",
		"medications": []models.Medication{{Name: "Oseltamivir"}},
	}, &rx))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "rx.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/prescriptions/"+rx.ID+"/pdf", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.Equal(t, http.StatusOK, h.send(req, doctor, &rx))
	require.NotNil(t, rx.PDFURL)
	assert.Regexp(t, `^memory://`+doctorID+`/\d+\.pdf$`, *rx.PDFURL)
	assert.Len(t, h.uploader.Keys(), 1)
}

func TestMessagesAndAppointmentsOverHTTP(t *testing.T) {
	h := newHarness(t)
	doctorID, doctor := h.signup(models.RoleDoctor, "doc@clinic.io")
	patientID, patient := h.signup(models.RolePatient, "pat@clinic.io")

	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/messages", patient,
		map[string]string{"receiver_id": doctorID, "message": "Hello doctor"}, nil))
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/messages", doctor,
		map[string]string{"receiver_id": patientID, "message": "Hello"}, nil))
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/messages", doctor,
		map[string]string{"receiver_id": patientID, "message": " "}, nil))
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/messages", doctor,
		map[string]string{"receiver_id": "not-a-user", "message": "Hello"}, nil))

	var thread []models.Message
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/messages/"+patientID, doctor, nil, &thread))
	require.Len(t, thread, 2)
	assert.Equal(t, "Hello doctor", thread[0].Message)

	var a models.Appointment
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/appointments", patient, map[string]interface{}{
		"doctor_id":        doctorID,
		"appointment_date": time.Now().Add(72 * time.Hour).UTC(),
	}, &a))
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/appointments", doctor, map[string]interface{}{
		"doctor_id":        doctorID,
		"appointment_date": time.Now().Add(96 * time.Hour).UTC(),
	}, nil))

	require.Equal(t, http.StatusOK, h.do(http.MethodPatch, "/appointments/"+a.ID+"/status", doctor,
		map[string]string{"status": "confirmed"}, &a))
	assert.Equal(t, models.AppointmentConfirmed, a.Status)
	require.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/appointments/"+a.ID, patient, nil, &a))
	assert.Equal(t, models.AppointmentCancelled, a.Status)

	var list []models.Appointment
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/appointments", doctor, nil, &list))
	assert.Len(t, list, 1)
}

func TestHealthRecordsOverHTTP(t *testing.T) {
	h := newHarness(t)
	_, doctor := h.signup(models.RoleDoctor, "doc@clinic.io")
	patientID, patient := h.signup(models.RolePatient, "pat@clinic.io")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "Blood panel"))
	require.NoError(t, w.WriteField("record_type", "lab_report"))
	part, err := w.CreateFormFile("file", "labs.PDF")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/health-records/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	var rec models.HealthRecord
	require.Equal(t, http.StatusCreated, h.send(req, patient, &rec))
	require.NotNil(t, rec.FileURL)
	assert.Regexp(t, `^memory://`+patientID+`/\d+\.pdf$`, *rec.FileURL)

	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/health-records", doctor, map[string]interface{}{
		"patient_id":  patientID,
		"title":       "Blood pressure",
		"record_type": "vital_signs",
		"content":     map[string]int{"systolic": 120, "diastolic": 80},
	}, nil))

	var records []models.HealthRecord
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health-records?type=lab_report", patient, nil, &records))
	assert.Len(t, records, 1)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health-records?q=blood&patient_id="+patientID, doctor, nil, &records))
	assert.Len(t, records, 2)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/health-records", doctor, nil, nil))
}

func TestAdminRoutes(t *testing.T) {
	h := newHarness(t)
	_, patient := h.signup(models.RolePatient, "pat@clinic.io")

	_, err := h.svc.Accounts.CreateAdmin(context.Background(), "admin@clinic.io", "secret123", "Admin")
	require.NoError(t, err)
	var session struct {
		Token string `json:"token"`
	}
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/auth/login", "",
		map[string]string{"email": "admin@clinic.io", "password": "secret123"}, &session))

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/admin/overview", patient, nil, nil))

	var ov struct {
		TotalUsers    int64 `json:"total_users"`
		TotalPatients int64 `json:"total_patients"`
	}
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/admin/overview", session.Token, nil, &ov))
	assert.Equal(t, int64(2), ov.TotalUsers)
	assert.Equal(t, int64(1), ov.TotalPatients)

	var logs []models.SystemLog
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/admin/logs?limit=2", session.Token, nil, &logs))
	assert.Len(t, logs, 2)

	var breakdown []map[string]interface{}
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/admin/fulfillment", session.Token, nil, &breakdown))
	assert.Len(t, breakdown, 6)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)
	var body utils.ErrorResponse
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/nope", "", nil, &body))
	assert.NotEmpty(t, body.Error)
}
