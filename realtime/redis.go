package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/meinhoongagan/medicnote/errs"
	"github.com/meinhoongagan/medicnote/logger"
	"github.com/redis/go-redis/v9"
)

var ErrFeedClosed = errors.New("changefeed closed")

const channelPrefix = "medicnote:changes:"

func channelFor(table string) string {
	return channelPrefix + table
}

// RedisFeed publishes events as JSON on one pub/sub channel per table so
// every API instance sees every write.
type RedisFeed struct {
	client *redis.Client

	mu     sync.Mutex
	subs   map[*redisSub]struct{}
	closed bool
}

type redisSub struct {
	pubsub *redis.PubSub
	feed   *RedisFeed
	done   chan struct{}
	once   sync.Once
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client, subs: make(map[*redisSub]struct{})}
}

func (f *RedisFeed) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return errs.Remote("publish "+e.Table, f.client.Publish(ctx, channelFor(e.Table), payload).Err())
}

func (f *RedisFeed) Subscribe(ctx context.Context, table string, filter Filter, fn func(Event)) (Subscription, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFeedClosed
	}
	f.mu.Unlock()

	pubsub := f.client.Subscribe(ctx, channelFor(table))
	// wait for the subscription confirmation so no event published after
	// Subscribe returns can be missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errs.Remote("subscribe "+table, err)
	}

	s := &redisSub{pubsub: pubsub, feed: f, done: make(chan struct{})}
	f.mu.Lock()
	f.subs[s] = struct{}{}
	f.mu.Unlock()

	go s.pump(filter, fn)
	return s, nil
}

func (s *redisSub) pump(filter Filter, fn func(Event)) {
	defer close(s.done)
	for msg := range s.pubsub.Channel() {
		var e Event
		if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
			logger.Log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed change event")
			continue
		}
		if filter.match(e) {
			fn(e)
		}
	}
}

func (s *redisSub) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s)
		s.feed.mu.Unlock()
		err = s.pubsub.Close()
		<-s.done
	})
	return err
}

// Close releases every open subscription. The client itself is owned by the caller.
func (f *RedisFeed) Close() error {
	f.mu.Lock()
	f.closed = true
	subs := make([]*redisSub, 0, len(f.subs))
	for s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	var firstErr error
	for _, s := range subs {
		if err := s.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
