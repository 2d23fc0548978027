package replica

import "sync/atomic"

// Clock is the replica's monotonic Lamport clock.
//
// Every local op is stamped with a strictly increasing seq from this
// clock, and merge advances it past the highest imported seq. The pair
// (seq, replica id) totally orders ops across replicas without any
// wall-clock involvement, so replay order never depends on which
// machine's clock was ahead.
//
// Thread-safety: safe for concurrent use (atomic operations), though
// the transaction coordinator serializes the mutating callers anyway.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence
// number. Used on open to resume from the op log's max seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Observe advances the clock to at least seq. Called after importing
// peer ops so subsequent local ops sort after everything already seen.
func (c *Clock) Observe(seq int64) {
	for {
		cur := c.seq.Load()
		if cur >= seq {
			return
		}
		if c.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}
