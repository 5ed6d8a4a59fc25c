package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	rxID      = "6f1c2a4e-9b7d-4c3a-8e21-0d5b7f9a1c33"
	doctorID  = "0a8f3c1d-2b4e-4f6a-9c7d-1e2f3a4b5c6d"
	patientID = "9d8c7b6a-5f4e-4d3c-8b2a-1f0e9d8c7b6a"
	apptID    = "3c2b1a09-8f7e-4d6c-9b5a-4e3d2c1b0a9f"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Discard,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)
	return NewGormStore(db), mock
}

func TestGormApplyFulfillment_StaleStatusConflicts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "prescriptions" SET .*WHERE .*id = \$\d+ AND fulfillment_status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "prescriptions" WHERE id = \$1`).
		WithArgs(rxID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := store.Prescriptions.ApplyFulfillment(context.Background(), models.FulfillmentChange{
		PrescriptionID: rxID,
		From:           models.FulfillmentPending,
		To:             models.FulfillmentApproved,
		Log:            &models.FulfillmentLog{PrescriptionID: rxID, Status: models.FulfillmentApproved},
	})
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormApplyFulfillment_MissingRowIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "prescriptions" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "prescriptions"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	err := store.Prescriptions.ApplyFulfillment(context.Background(), models.FulfillmentChange{
		PrescriptionID: rxID,
		From:           models.FulfillmentPending,
		To:             models.FulfillmentRejected,
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormApplyFulfillment_LogFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "prescriptions" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "fulfillment_logs"`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.Prescriptions.ApplyFulfillment(context.Background(), models.FulfillmentChange{
		PrescriptionID: rxID,
		From:           models.FulfillmentApproved,
		To:             models.FulfillmentPreparing,
		Log:            &models.FulfillmentLog{PrescriptionID: rxID, Status: models.FulfillmentPreparing},
	})
	assert.True(t, errs.IsRemote(err), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormApplyFulfillment_Commits(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "prescriptions" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "fulfillment_logs"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Prescriptions.ApplyFulfillment(context.Background(), models.FulfillmentChange{
		PrescriptionID: rxID,
		From:           models.FulfillmentPreparing,
		To:             models.FulfillmentReady,
		Log:            &models.FulfillmentLog{PrescriptionID: rxID, Status: models.FulfillmentReady},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreateAccount_RoleRowFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "profiles"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "doctors"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	p := &models.Profile{FullName: "Doc", Email: "doc@clinic.io", Role: models.RoleDoctor}
	err := store.Profiles.CreateAccount(context.Background(), Account{
		Profile: p,
		Doctor:  &models.Doctor{Specialization: "ENT"},
	})
	assert.True(t, errs.IsRemote(err), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreateAccount_DuplicateEmailConflicts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "profiles"`).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "idx_profiles_email"})
	mock.ExpectRollback()

	err := store.Profiles.CreateAccount(context.Background(), Account{
		Profile: &models.Profile{FullName: "Pat", Email: "pat@clinic.io", Role: models.RolePatient},
		Patient: &models.Patient{},
	})
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreateAccount_PatientSharesProfileID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "profiles"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "patients"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p := &models.Profile{FullName: "Pat", Email: "pat@clinic.io", Role: models.RolePatient}
	patient := &models.Patient{}
	require.NoError(t, store.Profiles.CreateAccount(context.Background(), Account{Profile: p, Patient: patient}))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, p.ID, patient.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormListThread_ScopeAppliesToBothDirections(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "messages" WHERE \(\(?sender_id = \$1 AND receiver_id = \$2\)? OR \(?sender_id = \$3 AND receiver_id = \$4\)?\) AND appointment_id = \$5 ORDER BY created_at ASC,id ASC`).
		WithArgs(doctorID, patientID, patientID, doctorID, apptID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender_id", "receiver_id", "message", "appointment_id"}).
			AddRow("m1", patientID, doctorID, "hello", apptID))

	appt := apptID
	messages, err := store.Messages.ListThread(context.Background(), doctorID, patientID, models.ThreadScope{AppointmentID: &appt})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCountByFulfillment(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT fulfillment_status, COUNT\(\*\) AS count FROM "prescriptions" GROUP BY "?fulfillment_status"?`).
		WillReturnRows(sqlmock.NewRows([]string{"fulfillment_status", "count"}).
			AddRow("pending", 3).
			AddRow("ready", 1))

	counts, err := store.Prescriptions.CountByFulfillment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[models.FulfillmentPending])
	assert.Equal(t, int64(1), counts[models.FulfillmentReady])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMalformedIDsNeverReachTheDatabase(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	_, err := store.Prescriptions.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = store.Profiles.GetByID(ctx, "42")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = store.Appointments.GetByID(ctx, "abc")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = store.Notifications.GetByID(ctx, "abc")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, store.Prescriptions.SetPDFURL(ctx, "abc", "u"), errs.ErrNotFound)
	assert.ErrorIs(t, store.Notifications.MarkRead(ctx, "abc"), errs.ErrNotFound)

	err = store.Prescriptions.ApplyFulfillment(ctx, models.FulfillmentChange{
		PrescriptionID: "abc",
		From:           models.FulfillmentPending,
		To:             models.FulfillmentApproved,
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	rxs, err := store.Prescriptions.List(ctx, PrescriptionFilter{PatientID: "patient-1"})
	require.NoError(t, err)
	assert.Empty(t, rxs)
	messages, err := store.Messages.ListThread(ctx, "a", "b", models.ThreadScope{})
	require.NoError(t, err)
	assert.Empty(t, messages)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWrap(t *testing.T) {
	assert.NoError(t, wrap("op", nil))
	assert.ErrorIs(t, wrap("get", gorm.ErrRecordNotFound), errs.ErrNotFound)
	assert.ErrorIs(t, wrap("insert", gorm.ErrDuplicatedKey), errs.ErrConflict)
	assert.ErrorIs(t, wrap("insert", &pgconn.PgError{Code: pgUniqueViolation}), errs.ErrConflict)
	assert.True(t, errs.IsValidation(wrap("get", &pgconn.PgError{Code: pgInvalidTextRepresentation})))
	assert.True(t, errs.IsRemote(wrap("get", errors.New("timeout"))))
}
