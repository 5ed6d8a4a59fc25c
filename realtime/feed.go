// Package realtime carries row-change events between writers and live
// readers. A Feed fans events out per table, a Coalescer collapses bursts
// of invalidations into one refetch and a View holds the latest loaded
// state for a subscriber.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Event describes one row change. Fields carries the column values
// subscribers filter on (user_id, sender_id, receiver_id, ...).
type Event struct {
	Table    string            `json:"table"`
	Op       Op                `json:"op"`
	RecordID string            `json:"record_id"`
	Fields   map[string]string `json:"fields,omitempty"`
	At       time.Time         `json:"at"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(table string, op Op, recordID string, fields map[string]string) Event {
	return Event{Table: table, Op: op, RecordID: recordID, Fields: fields, At: time.Now()}
}

// Filter reports whether a subscriber wants an event. A nil Filter accepts all.
type Filter func(Event) bool

// FieldEquals matches events whose Fields[key] equals value.
func FieldEquals(key, value string) Filter {
	return func(e Event) bool { return e.Fields[key] == value }
}

// AnyOf matches when at least one filter matches.
func AnyOf(filters ...Filter) Filter {
	return func(e Event) bool {
		for _, f := range filters {
			if f == nil || f(e) {
				return true
			}
		}
		return false
	}
}

// AllOf matches when every filter matches.
func AllOf(filters ...Filter) Filter {
	return func(e Event) bool {
		for _, f := range filters {
			if !f.match(e) {
				return false
			}
		}
		return true
	}
}

func (f Filter) match(e Event) bool {
	return f == nil || f(e)
}

type Subscription interface {
	Unsubscribe() error
}

// Feed is the changefeed collaborator. Handlers must not block; hand the
// event to a Coalescer or a channel.
type Feed interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(ctx context.Context, table string, filter Filter, fn func(Event)) (Subscription, error)
	Close() error
}

// MemoryFeed delivers events to subscribers in the same process.
type MemoryFeed struct {
	mu     sync.RWMutex
	subs   map[string]map[string]*memorySub // table -> id -> sub
	closed bool
}

type memorySub struct {
	id     string
	table  string
	filter Filter
	fn     func(Event)
	feed   *MemoryFeed
	once   sync.Once
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[string]map[string]*memorySub)}
}

func (f *MemoryFeed) Publish(_ context.Context, e Event) error {
	f.mu.RLock()
	targets := make([]*memorySub, 0, len(f.subs[e.Table]))
	for _, s := range f.subs[e.Table] {
		targets = append(targets, s)
	}
	f.mu.RUnlock()

	for _, s := range targets {
		if s.filter.match(e) {
			s.fn(e)
		}
	}
	return nil
}

func (f *MemoryFeed) Subscribe(_ context.Context, table string, filter Filter, fn func(Event)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrFeedClosed
	}
	s := &memorySub{id: uuid.NewString(), table: table, filter: filter, fn: fn, feed: f}
	if f.subs[table] == nil {
		f.subs[table] = make(map[string]*memorySub)
	}
	f.subs[table][s.id] = s
	return s, nil
}

func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.subs = make(map[string]map[string]*memorySub)
	return nil
}

// Subscribers returns the number of live subscriptions on table.
func (f *MemoryFeed) Subscribers(table string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[table])
}

func (s *memorySub) Unsubscribe() error {
	s.once.Do(func() {
		s.feed.mu.Lock()
		defer s.feed.mu.Unlock()
		if subs, ok := s.feed.subs[s.table]; ok {
			delete(subs, s.id)
			if len(subs) == 0 {
				delete(s.feed.subs, s.table)
			}
		}
	})
	return nil
}
