package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := map[string]RegisterInput{
		"bad email":         {Email: "nope", Password: "secret123", FullName: "A", Role: models.RolePatient},
		"short password":    {Email: "a@x.io", Password: "123", FullName: "A", Role: models.RolePatient},
		"unknown role":      {Email: "a@x.io", Password: "secret123", FullName: "A", Role: "nurse"},
		"doctor no special": {Email: "a@x.io", Password: "secret123", FullName: "A", Role: models.RoleDoctor},
		"self admin":        {Email: "a@x.io", Password: "secret123", FullName: "A", Role: models.RoleAdmin},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.accounts.Register(ctx, in)
			assert.True(t, errs.IsValidation(err), "got %v", err)
		})
	}
}

func TestRegister_CreatesRoleRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doctor := env.register(t, models.RoleDoctor, "Doc@Clinic.io")
	d, err := env.store.Profiles.GetDoctor(ctx, doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", d.Specialization)
	require.NotNil(t, d.Profile)
	assert.Equal(t, "doc@clinic.io", d.Profile.Email)

	env.register(t, models.RolePatient, "pat@clinic.io")
	patients, err := env.store.Counter.Count(ctx, models.TablePatients)
	require.NoError(t, err)
	assert.Equal(t, int64(1), patients)

	_, err = env.accounts.Register(ctx, RegisterInput{Email: "DOC@clinic.io", Password: "secret123", FullName: "Dup", Role: models.RolePatient})
	assert.ErrorIs(t, err, errs.ErrConflict)
}

// failingProfiles fails account creation after the email check has passed.
type failingProfiles struct {
	repository.Profiles
	err error
}

func (f failingProfiles) CreateAccount(context.Context, repository.Account) error { return f.err }

func TestRegister_FailedCreateLeavesNoAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := RegisterInput{Email: "doc@clinic.io", Password: "secret123", FullName: "Doc", Role: models.RoleDoctor, Specialization: "ENT"}

	broken := NewAccountService(failingProfiles{env.store.Profiles, errs.Remote("insert doctor", errors.New("connection reset"))}, env.audit, []byte("test-secret"), time.Hour)
	_, err := broken.Register(ctx, in)
	assert.True(t, errs.IsRemote(err), "got %v", err)

	_, err = env.store.Profiles.GetByEmail(ctx, in.Email)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	logs, err := env.store.SystemLogs.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, logs)

	// a lost race on the unique email surfaces as a conflict
	racing := NewAccountService(failingProfiles{env.store.Profiles, fmt.Errorf("insert profile: %w", errs.ErrConflict)}, env.audit, []byte("test-secret"), time.Hour)
	_, err = racing.Register(ctx, in)
	assert.ErrorIs(t, err, errs.ErrConflict)

	// the same email still registers afterwards
	_, err = env.accounts.Register(ctx, in)
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patient := env.register(t, models.RolePatient, "pat@clinic.io")

	_, err := env.accounts.Login(ctx, "pat@clinic.io", "wrong-password", "", "")
	assert.ErrorIs(t, err, errs.ErrAuthenticationRequired)
	_, err = env.accounts.Login(ctx, "ghost@clinic.io", "secret123", "", "")
	assert.ErrorIs(t, err, errs.ErrAuthenticationRequired)

	session, err := env.accounts.Login(ctx, " PAT@clinic.io ", "secret123", "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.Equal(t, patient.ID, session.User.ID)

	token, err := jwt.Parse(session.Token, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, patient.ID, claims["id"])
	assert.Equal(t, "patient", claims["role"])

	logs, err := env.analytics.SystemLogs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, ActionLogin, logs[0].Action)
	require.NotNil(t, logs[0].IPAddress)
	assert.Equal(t, "10.0.0.1", *logs[0].IPAddress)
}

func TestCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patient := env.register(t, models.RolePatient, "pat@clinic.io")

	p, err := env.accounts.CurrentUser(ctx, patient)
	require.NoError(t, err)
	assert.NotEmpty(t, p.PasswordHash)

	_, err = env.accounts.CurrentUser(ctx, Actor{})
	assert.ErrorIs(t, err, errs.ErrAuthenticationRequired)
	_, err = env.accounts.CurrentUser(ctx, Actor{ID: "gone", Role: models.RolePatient})
	assert.ErrorIs(t, err, errs.ErrAuthenticationRequired)
}
