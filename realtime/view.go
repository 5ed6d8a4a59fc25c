package realtime

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrViewClosed = errors.New("view closed")

// Loader fetches the full current state of a view.
type Loader[T any] func(ctx context.Context) (T, error)

// View holds the last loaded state of one screen-sized query. Every refresh
// re-runs the loader in full. Results of a refresh that was overtaken by a
// newer one, or that finish after Close, are dropped.
type View[T any] struct {
	load     Loader[T]
	onChange func(T)

	mu      sync.Mutex
	gen     uint64
	applied uint64
	closed  bool
	loaded  bool
	value   T
	err     error

	// deliver serializes onChange; delivered is the newest generation sent.
	deliver   sync.Mutex
	delivered uint64
}

// NewView creates an empty view. onChange, if set, receives applied results
// outside the view lock, one call at a time and never older than one
// already delivered.
func NewView[T any](load Loader[T], onChange func(T)) *View[T] {
	return &View[T]{load: load, onChange: onChange}
}

func (v *View[T]) Refresh(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	value, err := v.load(ctx)

	v.mu.Lock()
	if v.closed || gen != v.gen {
		v.mu.Unlock()
		return nil
	}
	if err != nil {
		v.err = err
		v.mu.Unlock()
		return err
	}
	v.value, v.loaded, v.err = value, true, nil
	v.applied = gen
	v.mu.Unlock()

	if v.onChange != nil {
		v.notify(gen, value)
	}
	return nil
}

func (v *View[T]) notify(gen uint64, value T) {
	v.deliver.Lock()
	defer v.deliver.Unlock()

	v.mu.Lock()
	current := !v.closed && gen == v.applied
	v.mu.Unlock()
	if !current || gen <= v.delivered {
		return
	}
	v.delivered = gen
	v.onChange(value)
}

// Snapshot returns the last applied value and whether one was ever loaded.
func (v *View[T]) Snapshot() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.loaded
}

// Err returns the error of the last refresh, if it failed.
func (v *View[T]) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *View[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}

// Watch subscribes view to table changes matching filter and refreshes it
// through a coalescer. The returned subscription stops both.
func Watch[T any](ctx context.Context, feed Feed, table string, filter Filter, window time.Duration, view *View[T]) (Subscription, error) {
	c := NewCoalescer(window, func() { _ = view.Refresh(ctx) })
	sub, err := feed.Subscribe(ctx, table, filter, func(Event) { c.Trigger() })
	if err != nil {
		c.Stop()
		return nil, err
	}
	return &watch{sub: sub, coalescer: c}, nil
}

type watch struct {
	sub       Subscription
	coalescer *Coalescer
}

func (w *watch) Unsubscribe() error {
	w.coalescer.Stop()
	return w.sub.Unsubscribe()
}
