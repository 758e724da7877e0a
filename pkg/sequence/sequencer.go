// Package sequence provides the strictly monotonic id source used for
// order ids. Ids are never reused: a cancelled order's id can never be
// resurrected by a later submission.
package sequence

import "sync/atomic"

// Sequencer generates strictly monotonic sequence ids. It is deterministic
// and replay-safe.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer that will issue start+1 first. On a fresh start
// use 0; after replay, the highest id seen.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence id.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Advance raises the sequencer to at least v. Only used during replay.
func (s *Sequencer) Advance(v uint64) {
	for {
		cur := s.next.Load()
		if cur >= v || s.next.CompareAndSwap(cur, v) {
			return
		}
	}
}
