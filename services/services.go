// Package services implements the MedicNote operations on top of the
// repository layer. Services are stateless and safe for concurrent use;
// every write that other users may be watching publishes a change event.
package services

import (
	"context"
	"time"

	"github.com/meinhoongagan/medicnote/logger"
	"github.com/meinhoongagan/medicnote/models"
	"github.com/meinhoongagan/medicnote/realtime"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string      `json:"id"`
	Role models.Role `json:"role"`
}

func (a Actor) Is(roles ...models.Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// publish sends a change event after a committed write. A feed failure is
// logged and swallowed.
func publish(ctx context.Context, feed realtime.Feed, e realtime.Event) {
	if feed == nil {
		return
	}
	if err := feed.Publish(ctx, e); err != nil {
		logger.Log.Warn().Err(err).Str("table", e.Table).Str("record_id", e.RecordID).Msg("publish change event")
	}
}

// Live is a view kept fresh by a changefeed subscription.
type Live[T any] struct {
	View *realtime.View[T]
	sub  realtime.Subscription
}

// Close stops refreshing and drops any refetch still in flight.
func (l *Live[T]) Close() {
	l.View.Close()
	_ = l.sub.Unsubscribe()
}

// watch subscribes first and hydrates second so no change committed
// between the two is missed.
func watch[T any](ctx context.Context, feed realtime.Feed, table string, filter realtime.Filter, window time.Duration, load realtime.Loader[T], onChange func(T)) (*Live[T], error) {
	view := realtime.NewView(load, onChange)
	sub, err := realtime.Watch(ctx, feed, table, filter, window, view)
	if err != nil {
		return nil, err
	}
	live := &Live[T]{View: view, sub: sub}
	if err := view.Refresh(ctx); err != nil {
		live.Close()
		return nil, err
	}
	return live, nil
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
