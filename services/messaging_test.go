package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doctor := env.register(t, models.RoleDoctor, "doc@clinic.io")
	patient := env.register(t, models.RolePatient, "pat@clinic.io")

	_, err := env.messaging.Send(ctx, SendMessageInput{SenderID: doctor.ID, ReceiverID: patient.ID, Message: "   "})
	assert.True(t, errs.IsValidation(err))
	_, err = env.messaging.Send(ctx, SendMessageInput{SenderID: doctor.ID, Message: "hi"})
	assert.True(t, errs.IsValidation(err))

	m, err := env.messaging.Send(ctx, SendMessageInput{SenderID: doctor.ID, ReceiverID: patient.ID, Message: " hi ", AppointmentID: strPtr(" ")})
	require.NoError(t, err)
	assert.Equal(t, "hi", m.Message)
	assert.Equal(t, "text", m.MessageType)
	assert.Nil(t, m.AppointmentID)
}

func TestSendMessage_UnknownReceiver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patient := env.register(t, models.RolePatient, "pat@clinic.io")

	_, err := env.messaging.Send(ctx, SendMessageInput{SenderID: patient.ID, ReceiverID: "ghost", Message: "hello?"})
	require.True(t, errs.IsValidation(err), "got %v", err)

	thread, err := env.messaging.ListThread(ctx, patient.ID, "ghost", models.ThreadScope{})
	require.NoError(t, err)
	assert.Empty(t, thread)
}

func TestSendMessage_ScopeMustBelongToParticipants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doctor := env.register(t, models.RoleDoctor, "doc@clinic.io")
	patient := env.register(t, models.RolePatient, "pat@clinic.io")
	other := env.register(t, models.RolePatient, "other@clinic.io")

	rx := env.prescribe(t, doctor, other, "Otitis")
	appt, err := env.appointments.Book(ctx, BookAppointmentInput{PatientID: other.ID, DoctorID: doctor.ID, AppointmentDate: time.Now().Add(48 * time.Hour)})
	require.NoError(t, err)

	cases := map[string]SendMessageInput{
		"foreign prescription": {SenderID: patient.ID, ReceiverID: doctor.ID, Message: "about this", PrescriptionID: &rx.ID},
		"foreign appointment":  {SenderID: patient.ID, ReceiverID: doctor.ID, Message: "about this", AppointmentID: &appt.ID},
		"unknown prescription": {SenderID: patient.ID, ReceiverID: doctor.ID, Message: "about this", PrescriptionID: strPtr("rx-missing")},
		"unknown appointment":  {SenderID: patient.ID, ReceiverID: doctor.ID, Message: "about this", AppointmentID: strPtr("appt-missing")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.messaging.Send(ctx, in)
			assert.True(t, errs.IsValidation(err), "got %v", err)
		})
	}

	// either side of the pair may use the scope
	_, err = env.messaging.Send(ctx, SendMessageInput{SenderID: other.ID, ReceiverID: doctor.ID, Message: "question", PrescriptionID: &rx.ID, AppointmentID: &appt.ID})
	require.NoError(t, err)
	_, err = env.messaging.Send(ctx, SendMessageInput{SenderID: doctor.ID, ReceiverID: other.ID, Message: "answer", PrescriptionID: &rx.ID})
	require.NoError(t, err)
}

func TestListThread_SymmetricAndOrdered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc := env.register(t, models.RoleDoctor, "doc@clinic.io")
	pat := env.register(t, models.RolePatient, "pat@clinic.io")
	someone := env.register(t, models.RolePatient, "someone@clinic.io")
	rx := env.prescribe(t, doc, pat, "Hypertension")

	for _, in := range []SendMessageInput{
		{SenderID: doc.ID, ReceiverID: pat.ID, Message: "How are you feeling?"},
		{SenderID: pat.ID, ReceiverID: doc.ID, Message: "Better", PrescriptionID: &rx.ID},
		{SenderID: doc.ID, ReceiverID: someone.ID, Message: "unrelated"},
		{SenderID: doc.ID, ReceiverID: pat.ID, Message: "Keep taking it", PrescriptionID: &rx.ID},
	} {
		_, err := env.messaging.Send(ctx, in)
		require.NoError(t, err)
	}

	fromDoc, err := env.messaging.ListThread(ctx, doc.ID, pat.ID, models.ThreadScope{})
	require.NoError(t, err)
	fromPat, err := env.messaging.ListThread(ctx, pat.ID, doc.ID, models.ThreadScope{})
	require.NoError(t, err)

	require.Len(t, fromDoc, 3)
	assert.Equal(t, fromDoc, fromPat)
	assert.Equal(t, []string{"How are you feeling?", "Better", "Keep taking it"},
		[]string{fromDoc[0].Message, fromDoc[1].Message, fromDoc[2].Message})

	scoped, err := env.messaging.ListThread(ctx, pat.ID, doc.ID, models.ThreadScope{PrescriptionID: &rx.ID})
	require.NoError(t, err)
	assert.Len(t, scoped, 2)
}

func TestWatchThread_CoalescesBurst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	window := 100 * time.Millisecond
	messaging := NewMessagingService(env.store, env.feed, window)
	doc := env.register(t, models.RoleDoctor, "doc@clinic.io")
	pat := env.register(t, models.RolePatient, "pat@clinic.io")
	other := env.register(t, models.RoleDoctor, "other@clinic.io")

	var refreshes int32
	var lastLen int32
	live, err := messaging.WatchThread(ctx, doc.ID, pat.ID, models.ThreadScope{}, func(msgs []models.Message) {
		atomic.AddInt32(&refreshes, 1)
		atomic.StoreInt32(&lastLen, int32(len(msgs)))
	})
	require.NoError(t, err)
	defer live.Close()
	// the initial hydration counts as one
	require.Equal(t, int32(1), atomic.LoadInt32(&refreshes))

	for i := 0; i < 5; i++ {
		_, err := messaging.Send(ctx, SendMessageInput{SenderID: pat.ID, ReceiverID: doc.ID, Message: "ping"})
		require.NoError(t, err)
	}
	_, err = messaging.Send(ctx, SendMessageInput{SenderID: pat.ID, ReceiverID: other.ID, Message: "not ours"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&lastLen) == 5 }, time.Second, 5*time.Millisecond)
	time.Sleep(2 * window)
	assert.Equal(t, int32(2), atomic.LoadInt32(&refreshes))
}
