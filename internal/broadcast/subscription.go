package broadcast

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Subscription is a live (selector, callback) registration on a Cell.
//
// State machine: Attached -> (Emitting)* -> Cancelled. Cancelled is
// terminal and Cancel is idempotent.
type Subscription struct {
	once      sync.Once
	cancelled atomic.Bool
	done      chan struct{}
	release   func()
}

// Cancel stops further callback invocations and releases the subscription's
// cursor. A callback already running when Cancel is called finishes; no new
// callback starts afterwards.
//
// Cancel never affects the Cell or other subscriptions.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.cancelled.Store(true)
		close(s.done)
		if s.release != nil {
			s.release()
		}
	})
}

// Cancelled reports whether Cancel has been called.
func (s *Subscription) Cancelled() bool {
	return s != nil && s.cancelled.Load()
}

// Done is closed when the subscription is cancelled. A nil subscription
// reports as cancelled.
func (s *Subscription) Done() <-chan struct{} {
	if s == nil {
		return closedDone
	}
	return s.done
}

var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Watch subscribes to c with a projection and change suppression.
//
// If c holds a value, selector is applied and callback fires once on the
// calling goroutine before Watch returns, establishing the cursor. After
// that callback fires only when the projection of a newer value differs
// from the cursor under equal. A nil equal defaults to DeepEqual.
//
// Because the Cell conflates, a slow callback may skip intermediate values;
// it never observes them out of order.
func Watch[S, T any](c *Cell[S], selector func(S) T, equal EqualFunc[T], callback func(T)) *Subscription {
	if equal == nil {
		equal = DeepEqual[T]
	}

	sub := &Subscription{done: make(chan struct{})}
	id, signal := c.register()
	sub.release = func() { c.release(id) }

	w := &watcher[S, T]{
		cell:     c,
		sub:      sub,
		selector: selector,
		equal:    equal,
		callback: callback,
	}

	// Replay the current value before any goroutine exists, so the initial
	// delivery cannot race with a later one.
	if v, version, ok := c.snapshot(); ok {
		w.observe(v, version)
	}

	go w.loop(signal)
	return sub
}

// WatchAll subscribes to every distinct value of c (identity selector).
func WatchAll[S any](c *Cell[S], equal EqualFunc[S], callback func(S)) *Subscription {
	return Watch(c, func(s S) S { return s }, equal, callback)
}

type watcher[S, T any] struct {
	cell     *Cell[S]
	sub      *Subscription
	selector func(S) T
	equal    EqualFunc[T]
	callback func(T)

	// Owned by whichever goroutine is delivering; the initial delivery
	// happens-before loop starts.
	lastVersion uint64
	cursor      T
	hasCursor   bool
}

func (w *watcher[S, T]) loop(signal <-chan struct{}) {
	for {
		select {
		case <-w.sub.done:
			return
		case <-signal:
			w.pull()
		case <-w.cell.Done():
			// Deliver whatever was published before close, then stop.
			w.pull()
			w.sub.Cancel()
			return
		}
	}
}

func (w *watcher[S, T]) pull() {
	v, version, ok := w.cell.snapshot()
	if !ok {
		return
	}
	w.observe(v, version)
}

// observe applies the selector to a cell version newer than the last one
// seen and delivers it unless it equals the cursor.
func (w *watcher[S, T]) observe(v S, version uint64) {
	if version <= w.lastVersion {
		return
	}
	w.lastVersion = version

	projected := w.selector(v)
	if w.hasCursor && w.equal(w.cursor, projected) {
		return
	}
	if w.sub.Cancelled() {
		return
	}
	w.cursor = projected
	w.hasCursor = true
	w.invoke(projected)
}

func (w *watcher[S, T]) invoke(value T) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("subscription callback panicked",
				"panic", r,
			)
		}
	}()
	w.callback(value)
}
