package utils

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.Required("diagnosis"), fiber.StatusBadRequest},
		{errs.ErrAuthenticationRequired, fiber.StatusUnauthorized},
		{errs.ErrForbidden, fiber.StatusForbidden},
		{fmt.Errorf("load prescription: %w", errs.ErrNotFound), fiber.StatusNotFound},
		{errs.ErrConflict, fiber.StatusConflict},
		{&errs.InvalidTransitionError{Kind: "fulfillment", From: "pending", To: "ready"}, fiber.StatusUnprocessableEntity},
		{errs.Remote("insert", errors.New("connection reset")), fiber.StatusBadGateway},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusFor(c.err), c.err.Error())
	}
}

func TestCheckAvailability(t *testing.T) {
	nine := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)
	existing := []models.Appointment{
		{AppointmentDate: nine, DurationMinutes: 30, Status: models.AppointmentScheduled},
		{AppointmentDate: nine.Add(2 * time.Hour), DurationMinutes: 30, Status: models.AppointmentCancelled},
	}

	assert.False(t, CheckAvailability(existing, nine.Add(15*time.Minute), 30*time.Minute))
	assert.False(t, CheckAvailability(existing, nine.Add(-15*time.Minute), 30*time.Minute))
	assert.True(t, CheckAvailability(existing, nine.Add(30*time.Minute), 30*time.Minute))
	assert.True(t, CheckAvailability(existing, nine.Add(2*time.Hour), 30*time.Minute))
}

func TestMonthLabel(t *testing.T) {
	assert.Equal(t, "Jan 2024", MonthLabel(time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), MonthStart(time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)))
}

func TestGenerateMRN(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^MRN-\d{8}$`), GenerateMRN())
}

func TestMemoryUploader(t *testing.T) {
	u := NewMemoryUploader()
	url, err := u.Upload(context.Background(), "u1/1700000000000.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "memory://u1/1700000000000.pdf", url)
	assert.Equal(t, []byte("%PDF"), u.Objects["u1/1700000000000.pdf"])
	assert.Equal(t, []string{"u1/1700000000000.pdf"}, u.Keys())
}
