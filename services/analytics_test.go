package services

import (
	"context"
	"testing"
	"time"

	"github.com/meinhoongagan/medicnote/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyBuckets_Chronological(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, []MonthBucket{{Month: "Jan 2024", Count: 2}, {Month: "Feb 2024", Count: 1}}, MonthlyBuckets(dates))
}

func TestMonthlyBuckets_YearBoundaryAndEmpty(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	got := MonthlyBuckets(dates)
	require.Len(t, got, 3)
	assert.Equal(t, "Jan 2023", got[0].Month)
	assert.Equal(t, "Dec 2023", got[1].Month)
	assert.Equal(t, "Jan 2024", got[2].Month)

	assert.Empty(t, MonthlyBuckets(nil))
}

func TestOverviewAndBreakdown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doctor := env.register(t, models.RoleDoctor, "doc@clinic.io")
	patient := env.register(t, models.RolePatient, "pat@clinic.io")
	env.register(t, models.RolePatient, "pat2@clinic.io")
	env.register(t, models.RoleAdmin, "admin@clinic.io")
	pharmacist := env.register(t, models.RolePharmacist, "rx@pharma.io")
	ph := env.pharmacy(t, "Corner", "10001")

	p := env.prescribe(t, doctor, patient, "Flu")
	env.prescribe(t, doctor, patient, "Cold")
	for i := 0; i < 3; i++ {
		_, err := env.audit.Record(ctx, AuditEntry{Action: "test.noise"})
		require.NoError(t, err)
	}
	_, err := env.prescriptions.AssignPharmacy(ctx, pharmacist, p.ID, ph.ID)
	require.NoError(t, err)

	ov, err := env.analytics.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), ov.TotalUsers)
	assert.Equal(t, int64(1), ov.TotalDoctors)
	assert.Equal(t, int64(2), ov.TotalPatients)
	assert.Equal(t, int64(2), ov.TotalPrescriptions)
	assert.Len(t, ov.RecentLogs, 10)
	assert.Equal(t, ActionPharmacyAssigned, ov.RecentLogs[0].Action)

	breakdown, err := env.analytics.FulfillmentBreakdown(ctx)
	require.NoError(t, err)
	require.Len(t, breakdown, 6)
	assert.Equal(t, StatusCount{Status: models.FulfillmentPending, Count: 1}, breakdown[0])
	assert.Equal(t, StatusCount{Status: models.FulfillmentApproved, Count: 1}, breakdown[1])
	assert.Zero(t, breakdown[5].Count)

	monthly, err := env.analytics.MonthlyPrescriptions(ctx)
	require.NoError(t, err)
	require.Len(t, monthly, 1)
	assert.Equal(t, int64(2), monthly[0].Count)
}
