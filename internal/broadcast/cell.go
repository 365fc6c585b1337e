package broadcast

import "sync"

// Cell is a latest-value broadcast primitive.
//
// The zero version means "empty": no value has been seeded or published.
type Cell[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	subs    map[uint64]chan struct{}
	nextID  uint64
	closed  chan struct{}
	isDone  bool
}

// New creates an empty cell.
func New[T any]() *Cell[T] {
	return &Cell[T]{
		subs:   make(map[uint64]chan struct{}),
		closed: make(chan struct{}),
	}
}

// NewSeeded creates a cell holding initial as its first version.
func NewSeeded[T any](initial T) *Cell[T] {
	c := New[T]()
	c.value = initial
	c.version = 1
	return c
}

// Load returns the current value and whether one exists.
func (c *Cell[T]) Load() (T, bool) {
	v, _, ok := c.snapshot()
	return v, ok
}

// LoadVersion returns the current value together with its version.
// Pass the version to PublishIf to publish a value derived from this one.
func (c *Cell[T]) LoadVersion() (T, uint64, bool) {
	return c.snapshot()
}

// Version returns the number of values the cell has held. Zero means empty.
func (c *Cell[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Publish replaces the current value and wakes every subscriber.
// Returns the new version, or 0 if the cell has been closed.
//
// Publish never blocks on subscriber speed.
func (c *Cell[T]) Publish(v T) uint64 {
	c.mu.Lock()
	if c.isDone {
		c.mu.Unlock()
		return 0
	}
	c.value = v
	c.version++
	version := c.version
	signals := c.copySignalsLocked()
	c.mu.Unlock()

	notify(signals)
	return version
}

// PublishIf publishes v only if the cell is still at version expected.
// Returns false, and changes nothing, if another value was seeded or
// published since, or if the cell has been closed.
func (c *Cell[T]) PublishIf(expected uint64, v T) bool {
	c.mu.Lock()
	if c.isDone || c.version != expected {
		c.mu.Unlock()
		return false
	}
	c.value = v
	c.version++
	signals := c.copySignalsLocked()
	c.mu.Unlock()

	notify(signals)
	return true
}

// Seed publishes v only if the cell is still empty.
// Returns true if v became the current value.
func (c *Cell[T]) Seed(v T) bool {
	c.mu.Lock()
	if c.isDone || c.version != 0 {
		c.mu.Unlock()
		return false
	}
	c.value = v
	c.version = 1
	signals := c.copySignalsLocked()
	c.mu.Unlock()

	notify(signals)
	return true
}

// Subscribers returns the number of live subscriptions.
func (c *Cell[T]) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// Close stops all subscription goroutines after they have observed the
// final value. The current value stays readable; later publishes are
// ignored. Close is idempotent.
func (c *Cell[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isDone {
		return
	}
	c.isDone = true
	close(c.closed)
}

// Done is closed when the cell is closed.
func (c *Cell[T]) Done() <-chan struct{} {
	return c.closed
}

func (c *Cell[T]) snapshot() (T, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.version, c.version != 0
}

// register adds a subscriber slot. The signal channel has a buffer of 1 so
// that concurrent publishes coalesce.
func (c *Cell[T]) register() (uint64, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	signal := make(chan struct{}, 1)
	c.subs[id] = signal
	return id, signal
}

// release removes a subscriber slot. The signal channel is never closed, so
// an in-flight notify cannot panic.
func (c *Cell[T]) release(id uint64) {
	c.mu.Lock()
	delete(c.subs, id)
	c.mu.Unlock()
}

func (c *Cell[T]) copySignalsLocked() []chan struct{} {
	if len(c.subs) == 0 {
		return nil
	}
	signals := make([]chan struct{}, 0, len(c.subs))
	for _, s := range c.subs {
		signals = append(signals, s)
	}
	return signals
}

func notify(signals []chan struct{}) {
	for _, s := range signals {
		select {
		case s <- struct{}{}:
		default: // already pending; the subscriber will read the latest value
		}
	}
}
