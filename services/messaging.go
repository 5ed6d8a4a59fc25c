package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/realtime"
	"github.com/meinhoongagan/medicnote/repository"
)

// MessagingService handles direct messages between two users. Messages
// are immutable: there is no edit or delete path.
type MessagingService struct {
	repo          repository.Messages
	profiles      repository.Profiles
	appointments  repository.Appointments
	prescriptions repository.Prescriptions
	feed          realtime.Feed
	window        time.Duration
}

func NewMessagingService(store *repository.Store, feed realtime.Feed, window time.Duration) *MessagingService {
	return &MessagingService{
		repo:          store.Messages,
		profiles:      store.Profiles,
		appointments:  store.Appointments,
		prescriptions: store.Prescriptions,
		feed:          feed,
		window:        window,
	}
}

type SendMessageInput struct {
	SenderID       string  `json:"-"`
	ReceiverID     string  `json:"receiver_id"`
	Message        string  `json:"message"`
	MessageType    string  `json:"message_type"`
	AppointmentID  *string `json:"appointment_id"`
	PrescriptionID *string `json:"prescription_id"`
	FileURL        *string `json:"file_url"`
}

func (s *MessagingService) Send(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	text := strings.TrimSpace(in.Message)
	switch {
	case in.SenderID == "":
		return nil, errs.Required("sender_id")
	case in.ReceiverID == "":
		return nil, errs.Required("receiver_id")
	case text == "":
		return nil, errs.Required("message")
	}
	in.AppointmentID = nonEmpty(in.AppointmentID)
	in.PrescriptionID = nonEmpty(in.PrescriptionID)
	if err := s.checkParticipants(ctx, in); err != nil {
		return nil, err
	}

	m := &models.Message{
		SenderID:       in.SenderID,
		ReceiverID:     in.ReceiverID,
		Message:        text,
		MessageType:    strings.TrimSpace(in.MessageType),
		AppointmentID:  in.AppointmentID,
		PrescriptionID: in.PrescriptionID,
		FileURL:        in.FileURL,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	publish(ctx, s.feed, realtime.NewEvent(models.TableMessages, realtime.OpInsert, m.ID, map[string]string{
		"sender_id":   m.SenderID,
		"receiver_id": m.ReceiverID,
	}))
	return m, nil
}

// checkParticipants requires a known receiver and, when the message is
// scoped, an appointment or prescription between exactly these two users.
func (s *MessagingService) checkParticipants(ctx context.Context, in SendMessageInput) error {
	if _, err := s.profiles.GetByID(ctx, in.ReceiverID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.Invalid("receiver_id", "unknown user %s", in.ReceiverID)
		}
		return err
	}
	if id := in.AppointmentID; id != nil {
		a, err := s.appointments.GetByID(ctx, *id)
		if errors.Is(err, errs.ErrNotFound) {
			return errs.Invalid("appointment_id", "unknown appointment %s", *id)
		} else if err != nil {
			return err
		}
		if !samePair(a.PatientID, a.DoctorID, in.SenderID, in.ReceiverID) {
			return errs.Invalid("appointment_id", "appointment %s is not between sender and receiver", *id)
		}
	}
	if id := in.PrescriptionID; id != nil {
		p, err := s.prescriptions.GetByID(ctx, *id)
		if errors.Is(err, errs.ErrNotFound) {
			return errs.Invalid("prescription_id", "unknown prescription %s", *id)
		} else if err != nil {
			return err
		}
		if !samePair(p.PatientID, p.DoctorID, in.SenderID, in.ReceiverID) {
			return errs.Invalid("prescription_id", "prescription %s is not between sender and receiver", *id)
		}
	}
	return nil
}

func samePair(a, b, x, y string) bool {
	return (a == x && b == y) || (a == y && b == x)
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// ListThread returns the conversation between a and b, oldest first. The
// result is the same whichever side asks.
func (s *MessagingService) ListThread(ctx context.Context, a, b string, scope models.ThreadScope) ([]models.Message, error) {
	if a == "" || b == "" {
		return nil, errs.Required("participant")
	}
	return s.repo.ListThread(ctx, a, b, scope)
}

// threadFilter matches messages sent in either direction between a and b.
func threadFilter(a, b string) realtime.Filter {
	return realtime.AnyOf(
		realtime.AllOf(realtime.FieldEquals("sender_id", a), realtime.FieldEquals("receiver_id", b)),
		realtime.AllOf(realtime.FieldEquals("sender_id", b), realtime.FieldEquals("receiver_id", a)),
	)
}

// WatchThread keeps a thread view fresh. Each burst of new messages causes
// one full re-read of the thread.
func (s *MessagingService) WatchThread(ctx context.Context, a, b string, scope models.ThreadScope, onChange func([]models.Message)) (*Live[[]models.Message], error) {
	load := func(ctx context.Context) ([]models.Message, error) {
		return s.ListThread(ctx, a, b, scope)
	}
	return watch(ctx, s.feed, models.TableMessages, threadFilter(a, b), s.window, load, onChange)
}
