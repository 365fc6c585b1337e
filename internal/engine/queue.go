package engine

import "sync"

// envelope carries one action through the mailbox together with its causal
// context.
type envelope[S any] struct {
	action Action
	chain  string
	depth  int // 0 for external dispatches, trigger depth+1 for emissions

	// reply receives the outcome of a DispatchAndWait. Buffered, size 1.
	reply chan result[S]
}

type result[S any] struct {
	state S
	err   error
}

// mailbox is a thread-safe FIFO queue of envelopes.
//
// The queue is unbounded so that epics can emit arbitrarily many actions
// without blocking on the Run loop.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type mailbox[S any] struct {
	mu     sync.Mutex
	items  []envelope[S]
	closed bool
	signal chan struct{} // Signals availability (buffered, size 1)
}

func newMailbox[S any]() *mailbox[S] {
	return &mailbox[S]{
		items:  make([]envelope[S], 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an envelope to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *mailbox[S]) Enqueue(env envelope[S]) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, env)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns false if the queue is empty.
func (q *mailbox[S]) TryDequeue() (envelope[S], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return envelope[S]{}, false
	}

	env := q.items[0]

	// Clear the slot so the backing array does not pin actions and states.
	q.items[0] = envelope[S]{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return env, true
}

// Wait returns a channel that signals when envelopes may be available.
// The channel is closed when the queue is closed.
func (q *mailbox[S]) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *mailbox[S]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *mailbox[S]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further envelopes and wakes the Run loop.
func (q *mailbox[S]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// drain removes and returns everything still queued.
func (q *mailbox[S]) drain() []envelope[S] {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
