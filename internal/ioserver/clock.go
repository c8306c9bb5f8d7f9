package ioserver

import "sync/atomic"

// Clock is a session's logical clock. Every executed statement is stamped
// with the next value, so journal order is execution order regardless of
// wall time.
//
// Clock is safe for concurrent use, though a session only ticks it from its
// own goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out, or 0.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
