package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/logger"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/realtime"
	"github.com/meinhoongagan/medicnote/repository"
)

// NotificationService is the per-user notification center. Every call is
// scoped to userID: another user's notification looks like a missing one.
type NotificationService struct {
	repo   repository.Notifications
	feed   realtime.Feed
	window time.Duration
}

func NewNotificationService(repo repository.Notifications, feed realtime.Feed, window time.Duration) *NotificationService {
	return &NotificationService{repo: repo, feed: feed, window: window}
}

func notificationEvent(op realtime.Op, n *models.Notification) realtime.Event {
	return realtime.NewEvent(models.TableNotifications, op, n.ID, map[string]string{"user_id": n.UserID})
}

func (s *NotificationService) Notify(ctx context.Context, userID, title, message string, typ models.NotificationType) (*models.Notification, error) {
	switch {
	case userID == "":
		return nil, errs.Required("user_id")
	case strings.TrimSpace(title) == "":
		return nil, errs.Required("title")
	case strings.TrimSpace(message) == "":
		return nil, errs.Required("message")
	}
	n := &models.Notification{
		UserID:  userID,
		Title:   strings.TrimSpace(title),
		Message: strings.TrimSpace(message),
		Type:    models.NormalizeNotificationType(string(typ)),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	publish(ctx, s.feed, notificationEvent(realtime.OpInsert, n))
	return n, nil
}

// notifyQuietly is the post-commit variant of Notify used by other services.
func (s *NotificationService) notifyQuietly(ctx context.Context, userID, title, message string, typ models.NotificationType) {
	if s == nil {
		return
	}
	if _, err := s.Notify(ctx, userID, title, message, typ); err != nil {
		logWarn(err, "create notification", title)
	}
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) owned(ctx context.Context, userID, id string) (*models.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, fmt.Errorf("notification %s: %w", id, errs.ErrNotFound)
	}
	return n, nil
}

// MarkRead is idempotent.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	n, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if n.Read {
		return nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return err
	}
	publish(ctx, s.feed, notificationEvent(realtime.OpUpdate, n))
	return nil
}

// MarkAllRead returns how many notifications changed state.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	changed, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		publish(ctx, s.feed, realtime.NewEvent(models.TableNotifications, realtime.OpUpdate, "", map[string]string{"user_id": userID}))
	}
	return changed, nil
}

// Delete removes the notification permanently.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	n, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	publish(ctx, s.feed, notificationEvent(realtime.OpDelete, n))
	return nil
}

// NotificationFeed is the state pushed to a live notification center.
type NotificationFeed struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
}

// Watch keeps the user's list and unread count fresh. The count is always
// recomputed from the store, never adjusted locally.
func (s *NotificationService) Watch(ctx context.Context, userID string, onChange func(NotificationFeed)) (*Live[NotificationFeed], error) {
	load := func(ctx context.Context) (NotificationFeed, error) {
		list, err := s.List(ctx, userID)
		if err != nil {
			return NotificationFeed{}, err
		}
		unread, err := s.UnreadCount(ctx, userID)
		if err != nil {
			return NotificationFeed{}, err
		}
		return NotificationFeed{Notifications: list, UnreadCount: unread}, nil
	}
	return watch(ctx, s.feed, models.TableNotifications, realtime.FieldEquals("user_id", userID), s.window, load, onChange)
}

func logWarn(err error, msg, subject string) {
	ev := logger.Log.Warn().Err(err).Str("subject", subject)
	if errors.Is(err, errs.ErrNotFound) {
		ev = ev.Bool("not_found", true)
	}
	ev.Msg(msg)
}
