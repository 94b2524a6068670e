// Package clock provides the microsecond time base shared by the show
// sequencer and its light patterns.
package clock

import "sync/atomic"

// Clock returns a monotonic timestamp in microseconds.
type Clock interface {
	NowMicros() uint64
}

// Manual is a Clock that only moves when told to. Safe for concurrent use.
type Manual struct {
	now atomic.Uint64
}

// NewManual creates a manual clock positioned at the given timestamp.
func NewManual(startMicros uint64) *Manual {
	m := &Manual{}
	m.now.Store(startMicros)
	return m
}

func (m *Manual) NowMicros() uint64 {
	return m.now.Load()
}

// Set moves the clock to an absolute timestamp.
func (m *Manual) Set(micros uint64) {
	m.now.Store(micros)
}

// Advance moves the clock forward by the given number of microseconds.
func (m *Manual) Advance(micros uint64) {
	m.now.Add(micros)
}
