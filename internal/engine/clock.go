package engine

import "sync/atomic"

// Clock is the monotonic logical clock that stamps commits.
//
// Every commit gets a strictly increasing seq. Reducer faults do not advance
// the clock, so seq counts committed transitions.
//
// Thread-safety: Clock is safe for concurrent use, although only the Run
// loop advances it.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start.
// Used by replay to continue numbering from a journal position.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
